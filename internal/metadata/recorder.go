package metadata

import (
	"time"

	"go.uber.org/zap"
)

/*
Recorder captures structured gate events.
It must not:
- perform I/O decisions
- affect control flow

Metadata is write-only.
No component may read metadata to influence tracking decisions.

Load failures are recorded at debug level, so production loggers drop them.
*/
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	fields := append([]zap.Field{
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Stringer("cause", cause),
		zap.String("error", errorString),
	}, attrFields(attrs)...)

	r.logger.Error("operation failed", fields...)
}

func (r *Recorder) RecordLoad(record LoadRecord) {
	fields := []zap.Field{
		zap.String("script_url", record.ScriptURL),
		zap.Int("http_status", record.HTTPStatus),
		zap.Duration("duration", record.Duration),
		zap.Int("size_byte", record.SizeByte),
		zap.Int("attempts", record.Attempts),
	}
	if record.Err != nil {
		r.logger.Debug("analytics script load failed", append(fields, zap.Stringer("cause", record.Cause), zap.Error(record.Err))...)
		return
	}
	r.logger.Debug("analytics script loaded", append(fields, zap.String("content_hash", record.ContentHash))...)
}

func (r *Recorder) RecordTrack(kind string, name string, queued bool) {
	r.logger.Debug("tracking call",
		zap.String("kind", kind),
		zap.String("event_name", name),
		zap.Bool("queued", queued),
	)
}

func (r *Recorder) RecordDelivery(record DeliveryRecord) {
	fields := []zap.Field{
		zap.Strings("events", record.EventNames),
		zap.Int("http_status", record.HTTPStatus),
		zap.Duration("duration", record.Duration),
		zap.Int("attempts", record.Attempts),
		zap.Bool("dry_run", record.DryRun),
	}
	if record.DryRun {
		r.logger.Info("events not sent (dry run)", append(fields, zap.String("payload", record.Payload))...)
		return
	}
	r.logger.Info("events delivered", fields...)
}

func attrFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, attr := range attrs {
		fields = append(fields, zap.String(string(attr.Key), attr.Value))
	}
	return fields
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordLoad(record LoadRecord)
	RecordTrack(kind string, name string, queued bool)
	RecordDelivery(record DeliveryRecord)
}

// NoopSink implements MetadataSink but does nothing.
// Components (or tests) can decide whether to inject Recorder or NoopSink.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordLoad(record LoadRecord) {}

func (n *NoopSink) RecordTrack(kind string, name string, queued bool) {}

func (n *NoopSink) RecordDelivery(record DeliveryRecord) {}
