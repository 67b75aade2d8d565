package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ ProductSavedHandler = (*Dispatcher)(nil)
	_ QueueConsumer       = (*Dispatcher)(nil)
	_ RecordFilter        = DataFilter{}
	_ MetricsRecorder     = NopMetricsRecorder{}
	_ ConfigProvider      = (*CfgxConfigProvider)(nil)
	_ OptionsResolver     = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
