package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-productwebhook/core"
)

// ProductSavedCommand runs the observer entry point. Execute never fails:
// the dispatch report goes to the result collector when one is attached.
type ProductSavedCommand struct {
	handler core.ProductSavedHandler
}

func NewProductSavedCommand(handler core.ProductSavedHandler) *ProductSavedCommand {
	return &ProductSavedCommand{handler: handler}
}

func (c *ProductSavedCommand) Execute(ctx context.Context, msg ProductSavedMessage) error {
	if c == nil || c.handler == nil {
		storeResult(ctx, core.DispatchReport{
			State: core.DispatchSkipped,
			Err:   commandDependencyError("command: product saved handler is required"),
		})
		return nil
	}
	storeResult(ctx, c.handler.HandleProductSaved(ctx, msg.Record))
	return nil
}

// DeliverQueuedCommand runs the queue consumer entry point.
type DeliverQueuedCommand struct {
	consumer core.QueueConsumer
}

func NewDeliverQueuedCommand(consumer core.QueueConsumer) *DeliverQueuedCommand {
	return &DeliverQueuedCommand{consumer: consumer}
}

func (c *DeliverQueuedCommand) Execute(ctx context.Context, msg DeliverQueuedMessage) error {
	if c == nil || c.consumer == nil {
		storeResult(ctx, core.DispatchReport{
			State:    core.DispatchSkipped,
			StoreID:  msg.Message.StoreID,
			EntityID: msg.Message.EntityID,
			Err:      commandDependencyError("command: queue consumer is required"),
		})
		return nil
	}
	storeResult(ctx, c.consumer.Consume(ctx, msg.Message))
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	if ctx == nil {
		return
	}
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
