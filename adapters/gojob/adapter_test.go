package gojob

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-productwebhook/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestMessageMappingRoundTrip(t *testing.T) {
	record := core.NewRecord(
		core.Field{Key: "sku", Value: core.StringValue("SKU-1")},
		core.Field{Key: "entity_id", Value: core.IntValue(42)},
		core.Field{Key: "price", Value: core.FloatValue(9.5)},
	)
	publishedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	original := core.QueueMessage{
		MessageID:   "msg-1",
		Topic:       core.TopicProductDataCreated,
		StoreID:     3,
		EntityID:    42,
		Record:      record,
		PublishedAt: publishedAt,
	}

	converted, err := ToExecutionMessage(original)
	if err != nil {
		t.Fatalf("to execution message: %v", err)
	}
	if converted.JobID != core.TopicProductDataCreated {
		t.Fatalf("expected topic as job id, got %q", converted.JobID)
	}
	if converted.IdempotencyKey != "msg-1" {
		t.Fatalf("expected message id as idempotency key, got %q", converted.IdempotencyKey)
	}

	roundTrip, err := FromExecutionMessage(converted)
	if err != nil {
		t.Fatalf("from execution message: %v", err)
	}
	if roundTrip.MessageID != "msg-1" || roundTrip.Topic != core.TopicProductDataCreated {
		t.Fatalf("unexpected envelope %+v", roundTrip)
	}
	if roundTrip.StoreID != 3 || roundTrip.EntityID != 42 {
		t.Fatalf("expected ids 3/42, got %d/%d", roundTrip.StoreID, roundTrip.EntityID)
	}
	if !roundTrip.PublishedAt.Equal(publishedAt) {
		t.Fatalf("expected published_at %s, got %s", publishedAt, roundTrip.PublishedAt)
	}
	keys := roundTrip.Record.Keys()
	if len(keys) != 3 || keys[0] != "sku" || keys[1] != "entity_id" || keys[2] != "price" {
		t.Fatalf("expected field order to survive mapping, got %v", keys)
	}
}

func TestFromExecutionMessage_AcceptsDecodedParameters(t *testing.T) {
	msg := &job.ExecutionMessage{
		JobID:          core.TopicProductDataCreated,
		IdempotencyKey: "idem-7",
		Parameters: map[string]any{
			ParamStoreID:  float64(2),
			ParamEntityID: "17",
			ParamPayload:  map[string]any{"sku": "A", "entity_id": float64(17)},
		},
	}
	out, err := FromExecutionMessage(msg)
	if err != nil {
		t.Fatalf("from execution message: %v", err)
	}
	if out.MessageID != "idem-7" {
		t.Fatalf("expected idempotency key fallback, got %q", out.MessageID)
	}
	if out.Topic != core.TopicProductDataCreated {
		t.Fatalf("expected job id fallback topic, got %q", out.Topic)
	}
	if out.StoreID != 2 || out.EntityID != 17 {
		t.Fatalf("expected ids 2/17, got %d/%d", out.StoreID, out.EntityID)
	}
	if !out.Record.Has("sku") {
		t.Fatalf("expected decoded payload fields")
	}
}

func TestFromExecutionMessage_RequiresPayload(t *testing.T) {
	if _, err := FromExecutionMessage(&job.ExecutionMessage{JobID: "x"}); err == nil {
		t.Fatalf("expected missing payload error")
	}
	if _, err := FromExecutionMessage(&job.ExecutionMessage{
		Parameters: map[string]any{ParamPayload: "{not json"},
	}); err == nil {
		t.Fatalf("expected invalid payload error")
	}
	if _, err := FromExecutionMessage(nil); err == nil {
		t.Fatalf("expected nil message error")
	}
}

func TestPublisher_EnqueuesMappedMessage(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	publisher := NewPublisher(enqueuer)

	err := publisher.Publish(context.Background(), "custom.topic", core.QueueMessage{
		MessageID: "msg-2",
		StoreID:   1,
		EntityID:  5,
		Record:    core.NewRecord(core.Field{Key: "sku", Value: core.StringValue("B")}),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != "custom.topic" {
		t.Fatalf("expected enqueued message with topic job id, got %+v", enqueuer.last)
	}
	if enqueuer.last.Parameters[ParamPayload] != `{"sku":"B"}` {
		t.Fatalf("unexpected payload %v", enqueuer.last.Parameters[ParamPayload])
	}

	enqueuer.err = errors.New("broker down")
	if err := publisher.Publish(context.Background(), "", core.QueueMessage{}); err == nil {
		t.Fatalf("expected enqueue failure to surface")
	}
	if err := (*Publisher)(nil).Publish(context.Background(), "", core.QueueMessage{}); err == nil {
		t.Fatalf("expected not configured error")
	}
}

func TestNackRetryPolicyBoundaries(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	}

	first := policy.NormalizeAttempt(queue.NackOptions{
		Delay:   30 * time.Second,
		Requeue: true,
		Reason:  " transient ",
	}, 1)
	if first.Delay != 10*time.Second {
		t.Fatalf("expected delay to be bounded, got %s", first.Delay)
	}
	if !first.Requeue || first.Reason != "transient" {
		t.Fatalf("expected requeue before max attempts, got %+v", first)
	}

	last := policy.NormalizeAttempt(queue.NackOptions{Delay: time.Second, Requeue: true}, 3)
	if last.Requeue || !last.DeadLetter {
		t.Fatalf("expected dead letter once max attempts is reached, got %+v", last)
	}
}

func TestConsumer_ProcessAcksEveryDecodedMessage(t *testing.T) {
	handler := &stubQueueHandler{report: core.DispatchReport{State: core.DispatchDeliveryFailed}}
	consumer, err := NewConsumer(&stubQueueDequeuer{}, handler)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	msg, err := ToExecutionMessage(core.QueueMessage{
		MessageID: "msg-3",
		StoreID:   1,
		EntityID:  9,
		Record:    core.NewRecord(core.Field{Key: "entity_id", Value: core.IntValue(9)}),
	})
	if err != nil {
		t.Fatalf("to execution message: %v", err)
	}
	delivery := &stubQueueDelivery{msg: msg}

	if err := consumer.Process(context.Background(), delivery); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !delivery.acked || delivery.nacked {
		t.Fatalf("expected failed delivery to be acked, not retried")
	}
	if len(handler.messages) != 1 || handler.messages[0].EntityID != 9 {
		t.Fatalf("expected handler to receive decoded message, got %+v", handler.messages)
	}
}

func TestConsumer_ProcessDeadLettersUndecodableMessage(t *testing.T) {
	handler := &stubQueueHandler{}
	consumer, err := NewConsumer(&stubQueueDequeuer{}, handler)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	delivery := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: core.TopicProductDataCreated}}

	if err := consumer.Process(context.Background(), delivery); err != nil {
		t.Fatalf("process: %v", err)
	}
	if delivery.acked || !delivery.nacked {
		t.Fatalf("expected nack for undecodable message")
	}
	if !delivery.nackOpts.DeadLetter || delivery.nackOpts.Requeue {
		t.Fatalf("expected dead letter nack, got %+v", delivery.nackOpts)
	}
	if len(handler.messages) != 0 {
		t.Fatalf("expected handler not to be called")
	}
}

func TestConsumer_RunDrainsQueueUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deliveries []queue.Delivery
	for i := int64(1); i <= 3; i++ {
		msg, err := ToExecutionMessage(core.QueueMessage{
			MessageID: "msg",
			StoreID:   1,
			EntityID:  i,
			Record:    core.NewRecord(core.Field{Key: "entity_id", Value: core.IntValue(i)}),
		})
		if err != nil {
			t.Fatalf("to execution message: %v", err)
		}
		deliveries = append(deliveries, &stubQueueDelivery{msg: msg})
	}
	handler := &stubQueueHandler{onConsume: func(count int) {
		if count == 3 {
			cancel()
		}
	}}
	consumer, err := NewConsumer(
		&stubQueueDequeuer{queue: deliveries},
		handler,
		WithWorkers(2),
		WithPollInterval(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer did not stop after cancellation")
	}
	if handler.count() != 3 {
		t.Fatalf("expected 3 consumed messages, got %d", handler.count())
	}
}

func TestNewConsumer_RequiresDependencies(t *testing.T) {
	if _, err := NewConsumer(nil, &stubQueueHandler{}); err == nil {
		t.Fatalf("expected dequeuer required error")
	}
	if _, err := NewConsumer(&stubQueueDequeuer{}, nil); err == nil {
		t.Fatalf("expected handler required error")
	}
}

func TestMetricsHook_RecordsWorkerEvents(t *testing.T) {
	recorder := &captureRecorder{}
	hook := NewMetricsHook(recorder)

	evt := worker.Event{
		Message:  &job.ExecutionMessage{JobID: core.TopicProductDataCreated},
		Attempt:  2,
		Err:      errors.New("retry"),
		Duration: 250 * time.Millisecond,
	}
	hook.OnStart(context.Background(), evt)
	hook.OnRetry(context.Background(), evt)

	if len(recorder.counters) != 2 {
		t.Fatalf("expected 2 counters, got %d", len(recorder.counters))
	}
	if recorder.counters[1]["event"] != workerEventRetry {
		t.Fatalf("expected retry event tag, got %v", recorder.counters[1])
	}
	if recorder.counters[1]["job_id"] != core.TopicProductDataCreated {
		t.Fatalf("expected job id tag, got %v", recorder.counters[1])
	}
	if len(recorder.histograms) != 1 || recorder.histograms[0] != 250 {
		t.Fatalf("expected one 250ms observation, got %v", recorder.histograms)
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
	err  error
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	if s.err != nil {
		return s.err
	}
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	mu    sync.Mutex
	queue []queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, nil
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nacked   bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nacked = true
	s.nackOpts = opts
	return nil
}

type stubQueueHandler struct {
	mu        sync.Mutex
	report    core.DispatchReport
	messages  []core.QueueMessage
	onConsume func(count int)
}

func (h *stubQueueHandler) Consume(_ context.Context, msg core.QueueMessage) core.DispatchReport {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	count := len(h.messages)
	h.mu.Unlock()
	if h.onConsume != nil {
		h.onConsume(count)
	}
	return h.report
}

func (h *stubQueueHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

type captureRecorder struct {
	counters   []map[string]string
	histograms []float64
}

func (r *captureRecorder) IncCounter(_ context.Context, _ string, _ int64, tags map[string]string) {
	r.counters = append(r.counters, tags)
}

func (r *captureRecorder) ObserveHistogram(_ context.Context, _ string, value float64, _ map[string]string) {
	r.histograms = append(r.histograms, value)
}
