package core

import "context"

const (
	MetricDispatchTotal    = "productwebhook.dispatch.total"
	MetricDeliveryTotal    = "productwebhook.delivery.total"
	MetricDeliveryDuration = "productwebhook.delivery.duration_ms"

	MetricQueueWorkerTotal    = "productwebhook.queue.worker.total"
	MetricQueueWorkerDuration = "productwebhook.queue.worker.duration_ms"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

