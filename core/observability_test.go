package core

import (
	"context"
	"strings"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

func TestLogWithLevel_RedactsAndAttachesFields(t *testing.T) {
	logger := newCaptureLogger()

	LogWithLevel(context.Background(), logger, "warn", "endpoint rejected", map[string]any{
		"store_id": int64(3),
		"secret":   "s3cr3t",
		"nested":   map[string]any{"api_key": "k"},
	})

	records := logger.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected one log record, got %d", len(records))
	}
	record := records[0]
	if record.level != "warn" || record.msg != "endpoint rejected" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.fields["store_id"] != int64(3) {
		t.Fatalf("expected store_id field, got %#v", record.fields["store_id"])
	}
	if record.fields["secret"] != RedactedValue {
		t.Fatalf("expected secret to be redacted, got %#v", record.fields["secret"])
	}
	nested, ok := record.fields["nested"].(map[string]any)
	if !ok || nested["api_key"] != RedactedValue {
		t.Fatalf("expected nested api_key to be redacted, got %#v", record.fields["nested"])
	}
}

func TestLogWithLevel_CriticalMapsToErrorWithSeverity(t *testing.T) {
	logger := newCaptureLogger()

	LogWithLevel(context.Background(), logger, "critical", "blacklisted scheme", nil)
	LogWithLevel(context.Background(), logger, "", "no level", nil)
	LogWithLevel(context.Background(), nil, "info", "dropped", nil)

	records := logger.snapshot()
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
	if records[0].level != "error" || records[0].fields["severity"] != "critical" {
		t.Fatalf("expected critical to log at error with severity field, got %+v", records[0])
	}
	if records[1].level != "info" {
		t.Fatalf("expected unknown level to default to info, got %q", records[1].level)
	}
}

func TestDispatcherObservability_RecordsDeliveryDuration(t *testing.T) {
	fixture := newDispatcherFixture(t, map[int64]EndpointConfig{
		0: {Enabled: true, Endpoint: "https://user:pw@hooks.example.com/in"},
	})

	fixture.dispatcher.HandleProductSaved(context.Background(), productRecord(t, map[string]any{"entity_id": 1}))

	found := false
	for _, item := range fixture.metrics.histograms {
		if item.name == MetricDeliveryDuration && item.tags["status"] == "success" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected delivery duration histogram")
	}
	for _, record := range fixture.logger.snapshot() {
		if record.msg != "product webhook delivered" {
			continue
		}
		endpoint, _ := record.fields["endpoint"].(string)
		if strings.Contains(endpoint, "pw") {
			t.Fatalf("expected endpoint userinfo to be stripped, got %q", endpoint)
		}
	}
}
