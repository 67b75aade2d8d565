package gocommand

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// QueueResolverKey is the resolver name used by MirrorToQueue.
const QueueResolverKey = "queue"

var errNoRegistry = errors.New("gocommand: registry is not configured")

// ValidateMessageContract checks that msg names its type and passes its own
// Validate, when it has one.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	typed, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: %T does not implement Type() string", msg)
	}
	if strings.TrimSpace(typed.Type()) == "" {
		return fmt.Errorf("gocommand: %T has an empty message type", msg)
	}
	return nil
}

// RegistryAdapter collects the webhook commands in a go-command registry so
// resolvers registered on it see every command.
type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	reg, _ := a.target()
	return reg
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	reg, err := a.target()
	if err != nil {
		return err
	}
	return reg.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	reg, err := a.target()
	if err != nil {
		return err
	}
	return reg.AddResolver(strings.TrimSpace(key), resolver)
}

// MirrorToQueue copies every registered command into a go-job queue
// registry on Initialize, so queue workers can resolve them by message type.
func (a *RegistryAdapter) MirrorToQueue(queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(QueueResolverKey, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	reg, err := a.target()
	if err != nil {
		return false
	}
	return reg.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	reg, err := a.target()
	if err != nil {
		return err
	}
	return reg.Initialize()
}

func (a *RegistryAdapter) target() (*command.Registry, error) {
	if a == nil || a.registry == nil {
		return nil, errNoRegistry
	}
	return a.registry, nil
}

// Mount subscribes cmd on the process dispatcher and adds it to the
// adapter registry. The subscription is dropped when registration fails.
func Mount[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if _, err := adapter.target(); err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	sub := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if sub != nil {
			sub.Unsubscribe()
		}
		return nil, err
	}
	return sub, nil
}

// DispatchWithResult dispatches msg and returns the value the handling
// command stored in the result collector. ok is false when nothing was
// stored.
func DispatchWithResult[T any, R any](ctx context.Context, msg T) (value R, ok bool, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	collector := command.NewResult[R]()
	if err = commanddispatcher.Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		return value, false, err
	}
	value, ok = collector.Load()
	return value, ok, nil
}
