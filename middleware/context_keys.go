package middleware

// Keys set on the gin context by this package. logger.LogHTTPError reads the
// same names.
const (
	// RequestIDKey holds the request ID (string).
	RequestIDKey = "request_id"
	// UserIDKey holds the caller's user ID (string) taken from UserIDHeader.
	UserIDKey = "user_id"
)
