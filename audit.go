package goSession

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one audit record. Tokens and passwords never appear in events.
type AuditEvent = audit.Event

// AuditSink receives audit events from the client's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// SlogSink logs audit events through a slog.Logger.
type SlogSink = audit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}

const (
	auditEventLoginSuccess   = "login_success"
	auditEventLoginFailure   = "login_failure"
	auditEventLogout         = "logout"
	auditEventProfileUpdate  = "profile_update"
	auditEventRehydrate      = "rehydrate"
	auditEventPersistFailure = "persist_failure"
)

// AuditErrorCode is the stable error classification recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidInput         AuditErrorCode = "invalid_input"
	auditErrAuthenticationFailed AuditErrorCode = "authentication_failed"
	auditErrRateLimited          AuditErrorCode = "rate_limited"
	auditErrUnavailable          AuditErrorCode = "gateway_unavailable"
	auditErrStorageWrite         AuditErrorCode = "storage_write"
	auditErrStorageDelete        AuditErrorCode = "storage_delete"
	auditErrCorrupt              AuditErrorCode = "corrupt_snapshot"
	auditErrTimeout              AuditErrorCode = "rehydration_timeout"
	auditErrCancelled            AuditErrorCode = "cancelled"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *audit.Dispatcher {
	return audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: c.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		DeviceID:  deviceIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrAuthenticationFailed):
		return auditErrAuthenticationFailed
	case errors.Is(err, ErrTooManyAttempts):
		return auditErrRateLimited
	case errors.Is(err, ErrGatewayUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrUnavailable
	case errors.Is(err, ErrStorageWrite):
		return auditErrStorageWrite
	case errors.Is(err, ErrStorageDelete):
		return auditErrStorageDelete
	case errors.Is(err, ErrCorruptSnapshot), errors.Is(err, ErrCorruptValue):
		return auditErrCorrupt
	case errors.Is(err, ErrRehydrationTimeout):
		return auditErrTimeout
	case errors.Is(err, context.Canceled):
		return auditErrCancelled
	default:
		return auditErrInternal
	}
}

func auditDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
