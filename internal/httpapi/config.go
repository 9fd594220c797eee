package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// streamTimeout bounds how long a single /events stream may stay open.
// Zero means no limit beyond client disconnect and server shutdown.
var streamTimeout time.Duration

// SetStreamTimeout sets the /events stream limit (0 disables).
func SetStreamTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	streamTimeout = d
}

// eventBuffer is the per-connection observer buffer.
var eventBuffer = 64

// SetEventBuffer sets the per-connection event buffer; non-positive values
// restore the default.
func SetEventBuffer(n int) {
	if n <= 0 {
		n = 64
	}
	eventBuffer = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
