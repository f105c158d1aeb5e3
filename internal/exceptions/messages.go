package exceptions

const ResponseUnknown = "unknown"

// Client-facing messages.
const (
	ErrClientCannotProcessRequest          = "Cannot process request"
	ErrClientSomethingWrongWithApplication = "Something went wrong, please try again later"
	ErrClientServiceUnavailable            = "Database temporarily unavailable, please try again"
	ErrClientInvalidCredentials            = "Invalid email or password"
	ErrClientNotAuthorized                 = "Authorization required"
	ErrClientSessionExpired                = "Session expired, please log in again"
	ErrClientTooManyRequests               = "Too many login attempts, please wait and try again"
	ErrClientAccountInactive               = "Account is not active"
	ErrClientNoLinkedDoctors               = "No doctors linked to this receptionist"
)

// Developer-facing messages, logged but never returned.
const (
	ErrDevValidationFailed       = "request validation failed"
	ErrDevInvalidObjectID        = "invalid object id for %s"
	ErrDevMissingField           = "missing required field %s"
	ErrDevDocumentNotFound       = "%s not found"
	ErrDevInvalidTransition      = "transition %s -> %s is not allowed"
	ErrDevStoreOperation         = "store operation %s failed"
	ErrDevStoreUnavailable       = "store unavailable"
	ErrDevAuthTokenMissing       = "authorization token missing"
	ErrDevAuthTokenInvalid       = "authorization token invalid, expired or revoked"
	ErrDevAuthGenerateToken      = "failed to sign session token"
	ErrDevInvalidCredentials     = "credentials did not match"
	ErrDevFailedToHashPassword   = "failed to hash password"
	ErrDevRateLimited            = "login rate limit exceeded"
	ErrDevAccountInactive        = "receptionist status is not active"
	ErrDevCannotBindRequest      = "cannot bind request body"
	ErrDevUnsupportedQueueUpdate = "queue update carries neither queueStatus nor status"
	ErrDevNoLinkedDoctors        = "receptionist has no linked doctors"
)
