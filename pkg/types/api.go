package types

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	// Required username to register.
	// example: ash
	Username string `json:"username" example:"ash"`
}

// LoginResponse acknowledges a queued login.
type LoginResponse struct {
	TaskID string `json:"task_id"`
}

// ModeResponse is returned by lifecycle endpoints.
type ModeResponse struct {
	// example: foreground
	Mode string `json:"mode" example:"foreground"`
}

// EventData is the data payload of a streamed CloudEvent.
type EventData struct {
	Kind      string `json:"kind"`
	Seq       uint64 `json:"seq"`
	Count     int    `json:"count,omitempty"`
	Success   *bool  `json:"success,omitempty"`
	Username  string `json:"username,omitempty"`
	Text      string `json:"text,omitempty"`
	Freshness string `json:"freshness,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
