package vitalflow

import (
	"go.uber.org/zap"

	base "github.com/halcyonlabs/vitalflow/pkg/vitalflow"
)

// Type aliases so consumers can import github.com/halcyonlabs/vitalflow
// directly.
type (
	Config          = base.Config
	KeysConfig      = base.KeysConfig
	DSPConfig       = base.DSPConfig
	StoreConfig     = base.StoreConfig
	InferenceConfig = base.InferenceConfig
	SchedulerConfig = base.SchedulerConfig
	SyncConfig      = base.SyncConfig
	MetricsConfig   = base.MetricsConfig
	LoggingConfig   = base.LoggingConfig

	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamInOption  = base.StreamInOption
	StreamOutOption = base.StreamOutOption
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption

	SensorPacket  = base.SensorPacket
	Snapshot      = base.Snapshot
	Alert         = base.Alert
	StoredRecord  = base.StoredRecord
	RiskLevel     = base.RiskLevel
	FrameSource   = base.FrameSource
	RecordStore   = base.RecordStore
	Uploader      = base.Uploader
	Notifier      = base.Notifier
	Observability = base.Observability
	Field         = base.Field
	ModelSet      = base.ModelSet
	AlertFunc     = base.AlertFunc
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInTransport(src FrameSource) StreamInOption {
	return base.StreamInTransport(src)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutStore(s RecordStore) StreamOutOption {
	return base.StreamOutStore(s)
}

func StreamOutUploader(u Uploader) StreamOutOption {
	return base.StreamOutUploader(u)
}

func StreamOutNotifier(n Notifier) StreamOutOption {
	return base.StreamOutNotifier(n)
}

func StreamOutCallback(fn AlertFunc) StreamOutOption {
	return base.StreamOutCallback(fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithTransport(src FrameSource) RuntimeOption {
	return base.WithTransport(src)
}

func WithStore(s RecordStore) RuntimeOption {
	return base.WithStore(s)
}

func WithUploader(u Uploader) RuntimeOption {
	return base.WithUploader(u)
}

func WithNotifier(n Notifier) RuntimeOption {
	return base.WithNotifier(n)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithLogger(log *zap.Logger) RuntimeOption {
	return base.WithLogger(log)
}

func WithModels(set ModelSet) RuntimeOption {
	return base.WithModels(set)
}

// Notifier adapters.
func NewCallbackNotifier(fn AlertFunc) Notifier {
	return base.NewCallbackNotifier(fn)
}

func NewChannelNotifier(buffer int) (Notifier, <-chan Alert, func()) {
	return base.NewChannelNotifier(buffer)
}
