package middlewares

// gin context keys shared with handlers and the access log.
const (
	CtxRequestID = "request_id"
	CtxJobID     = "job_id"
)
