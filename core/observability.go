package core

import (
	"context"
	"sort"
	"strings"
)

// Levels accepted by LogWithLevel.
const (
	LevelDebug    = "debug"
	LevelInfo     = "info"
	LevelWarn     = "warn"
	LevelError    = "error"
	LevelCritical = "critical"
)

// LogWithLevel writes a structured entry. critical maps to Error with a
// severity field because glog has no critical level and Fatal exits.
func LogWithLevel(ctx context.Context, logger Logger, level string, message string, fields map[string]any) {
	if logger == nil {
		return
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	safe := RedactSensitiveMap(fields)
	level = strings.ToLower(strings.TrimSpace(level))
	if level == LevelCritical {
		safe["severity"] = LevelCritical
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(safe))
	}
	args := flattenFields(safe)
	switch level {
	case LevelDebug:
		logger.Debug(message, args...)
	case LevelWarn:
		logger.Warn(message, args...)
	case LevelError, LevelCritical:
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (d *Dispatcher) log(ctx context.Context, level string, message string, fields map[string]any) {
	if d == nil {
		return
	}
	LogWithLevel(ctx, d.logger, level, message, fields)
}

func (d *Dispatcher) observeDispatch(ctx context.Context, report DispatchReport) {
	if d == nil || d.metricsRecorder == nil {
		return
	}
	d.metricsRecorder.IncCounter(ctx, MetricDispatchTotal, 1, map[string]string{
		"state": string(report.State),
	})
	if report.Outcome == nil {
		return
	}
	status := "success"
	if !report.Outcome.Success {
		status = "failure"
	}
	tags := map[string]string{
		"status":     status,
		"error_kind": string(report.Outcome.ErrorKind),
	}
	d.metricsRecorder.IncCounter(ctx, MetricDeliveryTotal, 1, cloneTags(tags))
	d.metricsRecorder.ObserveHistogram(ctx, MetricDeliveryDuration, float64(report.Outcome.Duration.Milliseconds()), cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
