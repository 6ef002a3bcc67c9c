package goSession

import "context"

type deviceIDContextKey struct{}

// WithDeviceID attaches an installation identifier to ctx. It is recorded in audit events
// and never persisted with the session.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDContextKey{}, deviceID)
}

func deviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(deviceIDContextKey{}).(string)
	return id
}
