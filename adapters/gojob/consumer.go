package gojob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-productwebhook/core"

	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers      = 1
	DefaultPollInterval = 250 * time.Millisecond
	DefaultErrorBackoff = time.Second
)

type ConsumerOption func(*Consumer)

func WithWorkers(n int) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithPollInterval(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithErrorBackoff(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.errorBackoff = d
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) ConsumerOption {
	return func(c *Consumer) {
		c.policy = policy
	}
}

func WithConsumerLogger(logger core.Logger) ConsumerOption {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Consumer pulls queued product events from go-job and hands them to a
// core.QueueConsumer. Decoded messages are acked whatever the delivery
// outcome; delivery failures are not retried.
type Consumer struct {
	dequeuer     queue.Dequeuer
	handler      core.QueueConsumer
	logger       core.Logger
	policy       RetryPolicy
	workers      int
	pollInterval time.Duration
	errorBackoff time.Duration
}

func NewConsumer(dequeuer queue.Dequeuer, handler core.QueueConsumer, opts ...ConsumerOption) (*Consumer, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("gojob: queue consumer is required")
	}
	c := &Consumer{
		dequeuer:     dequeuer,
		handler:      handler,
		logger:       glog.Nop(),
		policy:       RetryPolicy{MaxAttempts: 1, DeadLetterOnMax: true},
		workers:      DefaultWorkers,
		pollInterval: DefaultPollInterval,
		errorBackoff: DefaultErrorBackoff,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// Run starts the workers and blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("gojob: consumer is nil")
	}
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		worker := i
		group.Go(func() error {
			return c.loop(ctx, worker)
		})
	}
	return group.Wait()
}

func (c *Consumer) loop(ctx context.Context, worker int) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		delivery, err := c.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			core.LogWithLevel(ctx, c.logger, core.LevelWarn, "queue dequeue failed", map[string]any{
				"worker": worker,
				"error":  err.Error(),
			})
			if !sleep(ctx, c.errorBackoff) {
				return nil
			}
			continue
		}
		if delivery == nil {
			if !sleep(ctx, c.pollInterval) {
				return nil
			}
			continue
		}
		if err := c.Process(ctx, delivery); err != nil {
			core.LogWithLevel(ctx, c.logger, core.LevelError, "queue delivery settlement failed", map[string]any{
				"worker": worker,
				"error":  err.Error(),
			})
		}
	}
}

// Process handles one delivery. The returned error only reports a failed
// ack or nack.
func (c *Consumer) Process(ctx context.Context, delivery queue.Delivery) error {
	if c == nil || delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	raw := delivery.Message()
	msg, err := FromExecutionMessage(raw)
	if err != nil {
		fields := map[string]any{"error": err.Error()}
		if raw != nil {
			fields["job_id"] = raw.JobID
			fields["idempotency_key"] = raw.IdempotencyKey
		}
		core.LogWithLevel(ctx, c.logger, core.LevelError, "queued product event could not be decoded", fields)
		nack := c.policy.NormalizeAttempt(queue.NackOptions{
			DeadLetter: true,
			Reason:     "undecodable product event",
		}, 1)
		return delivery.Nack(ctx, nack)
	}

	report := c.handler.Consume(ctx, msg)
	core.LogWithLevel(ctx, c.logger, core.LevelDebug, "queued product event consumed", map[string]any{
		"message_id": msg.MessageID,
		"store_id":   report.StoreID,
		"entity_id":  report.EntityID,
		"state":      string(report.State),
	})
	return delivery.Ack(ctx)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
