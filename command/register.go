package command

import (
	"context"
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-productwebhook/adapters/gocommand"
	"github.com/goliatone/go-productwebhook/core"
)

// Subscriptions holds the dispatcher subscriptions made by Register.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, sub := range s {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// Register subscribes both entry point commands and adds them to the
// adapter registry. handler and consumer are usually the same
// *core.Dispatcher.
func Register(
	adapter *gocommand.RegistryAdapter,
	handler core.ProductSavedHandler,
	consumer core.QueueConsumer,
	runnerOpts ...runner.Option,
) (Subscriptions, error) {
	if handler == nil || consumer == nil {
		return nil, commandDependencyError("command: product saved handler and queue consumer are required")
	}
	var subs Subscriptions
	saved, err := gocommand.Mount(adapter, NewProductSavedCommand(handler), runnerOpts...)
	if err != nil {
		return nil, fmt.Errorf("command: register product saved: %w", err)
	}
	subs = append(subs, saved)
	queued, err := gocommand.Mount(adapter, NewDeliverQueuedCommand(consumer), runnerOpts...)
	if err != nil {
		subs.Unsubscribe()
		return nil, fmt.Errorf("command: register queued delivery: %w", err)
	}
	subs = append(subs, queued)
	return subs, nil
}

// DispatchProductSaved dispatches msg through the process dispatcher and
// returns the report stored by ProductSavedCommand.
func DispatchProductSaved(ctx context.Context, record core.Record) (core.DispatchReport, error) {
	report, _, err := gocommand.DispatchWithResult[ProductSavedMessage, core.DispatchReport](ctx, ProductSavedMessage{Record: record})
	return report, err
}

func DispatchQueued(ctx context.Context, msg core.QueueMessage) (core.DispatchReport, error) {
	report, _, err := gocommand.DispatchWithResult[DeliverQueuedMessage, core.DispatchReport](ctx, DeliverQueuedMessage{Message: msg})
	return report, err
}
