package constvars

import "context"

type contextKey string

const (
	ContextRequestIDKey      contextKey = "request_id"
	ContextReceptionistIDKey contextKey = "receptionist_id"

	HeaderRequestID     = "X-Request-ID"
	LoggingRequestIDKey = "request_id"

	// gin context keys set by the auth middleware.
	GinReceptionistIDKey = "receptionistID"
	GinTokenIDKey        = "tokenID"
	GinTokenExpiryKey    = "tokenExpiry"
)

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextRequestIDKey).(string)
	return id
}

// ReceptionistID returns the authenticated receptionist carried by ctx, or "".
func ReceptionistID(ctx context.Context) string {
	id, _ := ctx.Value(ContextReceptionistIDKey).(string)
	return id
}
