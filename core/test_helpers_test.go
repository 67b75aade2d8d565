package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type stubConfigSource struct {
	mu      sync.Mutex
	configs map[int64]EndpointConfig
	err     error
	calls   []int64
}

func newStubConfigSource(configs map[int64]EndpointConfig) *stubConfigSource {
	return &stubConfigSource{configs: configs}
}

func (s *stubConfigSource) EndpointConfig(_ context.Context, storeID int64) (EndpointConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeID)
	if s.err != nil {
		return EndpointConfig{}, s.err
	}
	return s.configs[storeID], nil
}

func (s *stubConfigSource) set(storeID int64, cfg EndpointConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[storeID] = cfg
}

type countingFilter struct {
	mu    sync.Mutex
	inner DataFilter
	calls int
}

func (f *countingFilter) Filter(record Record, allowList []string) Record {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.inner.Filter(record, allowList)
}

type stubSender struct {
	mu      sync.Mutex
	outcome DeliveryOutcome
	panicV  any
	records []Record
	configs []EndpointConfig
}

func (s *stubSender) Send(_ context.Context, record Record, cfg EndpointConfig) DeliveryOutcome {
	s.mu.Lock()
	s.records = append(s.records, record)
	s.configs = append(s.configs, cfg)
	panicV := s.panicV
	outcome := s.outcome
	s.mu.Unlock()
	if panicV != nil {
		panic(panicV)
	}
	return outcome
}

func (s *stubSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type stubPublisher struct {
	mu       sync.Mutex
	err      error
	topics   []string
	messages []QueueMessage
}

func (p *stubPublisher) Publish(_ context.Context, topic string, msg QueueMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return p.err
}

func (p *stubPublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

var errStubFailure = errors.New("stub failure")

func productRecord(t interface{ Fatalf(string, ...any) }, values map[string]any) Record {
	record, err := RecordFromMap(values)
	if err != nil {
		t.Fatalf("record from map: %v", err)
	}
	return record
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}
