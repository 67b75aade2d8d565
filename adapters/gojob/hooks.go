package gojob

import (
	"context"

	"github.com/goliatone/go-productwebhook/core"

	"github.com/goliatone/go-job/queue/worker"
)

const (
	workerEventStart   = "start"
	workerEventSuccess = "success"
	workerEventFailure = "failure"
	workerEventRetry   = "retry"
)

// MetricsHook reports go-job worker lifecycle events to a MetricsRecorder.
type MetricsHook struct {
	recorder core.MetricsRecorder
}

func NewMetricsHook(recorder core.MetricsRecorder) *MetricsHook {
	if recorder == nil {
		recorder = core.NopMetricsRecorder{}
	}
	return &MetricsHook{recorder: recorder}
}

func (h *MetricsHook) OnStart(ctx context.Context, event worker.Event) {
	h.observe(ctx, workerEventStart, event)
}

func (h *MetricsHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.observe(ctx, workerEventSuccess, event)
}

func (h *MetricsHook) OnFailure(ctx context.Context, event worker.Event) {
	h.observe(ctx, workerEventFailure, event)
}

func (h *MetricsHook) OnRetry(ctx context.Context, event worker.Event) {
	h.observe(ctx, workerEventRetry, event)
}

func (h *MetricsHook) observe(ctx context.Context, name string, event worker.Event) {
	if h == nil || h.recorder == nil {
		return
	}
	tags := map[string]string{
		"event":  name,
		"job_id": jobID(event),
	}
	h.recorder.IncCounter(ctx, core.MetricQueueWorkerTotal, 1, tags)
	if name == workerEventStart || event.Duration <= 0 {
		return
	}
	h.recorder.ObserveHistogram(ctx, core.MetricQueueWorkerDuration, float64(event.Duration.Milliseconds()), map[string]string{
		"event":  name,
		"job_id": tags["job_id"],
	})
}

func jobID(event worker.Event) string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message == nil {
		return ""
	}
	return message.JobID
}

var _ worker.Hook = (*MetricsHook)(nil)
