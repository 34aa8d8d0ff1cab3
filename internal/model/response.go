package model

// ErrorResponse is the body returned for any request the transport rejects.
type ErrorResponse struct {
	Status   int                 `json:"status"`
	Message  string              `json:"message"`
	Messages []ValidationMessage `json:"messages,omitempty"`
}
