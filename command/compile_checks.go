package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProductSavedMessage]  = (*ProductSavedCommand)(nil)
	_ gocmd.Commander[DeliverQueuedMessage] = (*DeliverQueuedCommand)(nil)
)
