package http

const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderRequestID      = "X-Request-ID"
	HeaderSessionID      = "X-Session-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderValueJson      = "application/json"
)
