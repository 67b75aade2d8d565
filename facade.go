package productwebhook

import (
	"fmt"

	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-productwebhook/adapters/gocommand"
	"github.com/goliatone/go-productwebhook/adapters/gojob"
	productcommand "github.com/goliatone/go-productwebhook/command"
	"github.com/goliatone/go-productwebhook/core"
)

// EntryPoints is implemented by *Dispatcher.
type EntryPoints interface {
	core.ProductSavedHandler
	core.QueueConsumer
}

type Commands struct {
	ProductSaved  *productcommand.ProductSavedCommand
	DeliverQueued *productcommand.DeliverQueuedCommand
}

// Facade exposes the dispatcher entry points as go-command commands and
// go-job consumers.
type Facade struct {
	entry    EntryPoints
	commands Commands
}

func NewFacade(entry EntryPoints) (*Facade, error) {
	if entry == nil {
		return nil, fmt.Errorf("productwebhook: entry points are required")
	}
	return &Facade{
		entry: entry,
		commands: Commands{
			ProductSaved:  productcommand.NewProductSavedCommand(entry),
			DeliverQueued: productcommand.NewDeliverQueuedCommand(entry),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) EntryPoints() EntryPoints {
	if f == nil {
		return nil
	}
	return f.entry
}

// Register subscribes both commands on the process dispatcher. Callers
// should Unsubscribe the result on shutdown.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter, runnerOpts ...runner.Option) (productcommand.Subscriptions, error) {
	if f == nil || f.entry == nil {
		return nil, fmt.Errorf("productwebhook: facade is not configured")
	}
	return productcommand.Register(adapter, f.entry, f.entry, runnerOpts...)
}

// NewQueueConsumer builds a go-job consumer that feeds the queue entry point.
func (f *Facade) NewQueueConsumer(dequeuer queue.Dequeuer, opts ...gojob.ConsumerOption) (*gojob.Consumer, error) {
	if f == nil || f.entry == nil {
		return nil, fmt.Errorf("productwebhook: facade is not configured")
	}
	return gojob.NewConsumer(dequeuer, f.entry, opts...)
}
