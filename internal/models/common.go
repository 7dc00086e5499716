package models

// ErrorBody is the JSON error envelope returned by the backend
type ErrorBody struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// MessageResponse is the acknowledgement returned by logout and similar calls
type MessageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success,omitempty"`
}
