package command

import "github.com/goliatone/go-productwebhook/core"

const (
	TypeProductSaved  = "productwebhook.command.product_saved"
	TypeDeliverQueued = "productwebhook.command.queued.deliver"
)

// ProductSavedMessage carries a product record as the host saw it at save
// time.
type ProductSavedMessage struct {
	Record core.Record
}

func (ProductSavedMessage) Type() string { return TypeProductSaved }

// DeliverQueuedMessage carries one message taken off the product data queue.
type DeliverQueuedMessage struct {
	Message core.QueueMessage
}

func (DeliverQueuedMessage) Type() string { return TypeDeliverQueued }
