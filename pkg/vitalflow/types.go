package vitalflow

import (
	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// SensorPacket is one decoded wearable telemetry segment.
type SensorPacket = domain.SensorPacket

// Snapshot is the current best-known value of every tracked vital and
// biomarker; read-only for consumers.
type Snapshot = domain.MetricsSnapshot

// Alert is a severity-graded detection event.
type Alert = domain.CriticalAlert

// StoredRecord is one persisted, sealed record awaiting sync.
type StoredRecord = domain.StoredRecord

// RiskLevel grades the subject's overall condition.
type RiskLevel = domain.RiskLevel

// FrameSource streams sealed transport frames into the pipeline
// (Bluetooth bridge, replay file, simulator).
type FrameSource = ports.FrameSource

// RecordStore is the encrypted offline record buffer.
type RecordStore = ports.RecordStore

// Uploader is the external backend collaborator for sync and critical
// alert delivery.
type Uploader = ports.Uploader

// Notifier receives alerts for the consumer/presentation layer.
type Notifier = ports.Notifier

// Observability emits metrics and structured logs for the pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// ModelSet bundles the scoring strategies the orchestrator fans out over.
type ModelSet = ports.ModelSet
