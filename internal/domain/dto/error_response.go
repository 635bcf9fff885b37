package dto

import "time"

// ErrorResponse is the JSON body returned for any non-2xx response.
//
// Fields:
//   - Message: short human readable description.
//   - ErrorDetails: underlying error text, omitted when empty.
//   - Timestamp: when the error response was built (UTC).
type ErrorResponse struct {
	Message      string    `json:"message" example:"failed to fetch records"`
	ErrorDetails string    `json:"error,omitempty" example:"connection refused"`
	Timestamp    time.Time `json:"timestamp" example:"2024-01-05T10:00:00Z"`
}

// Error implements the error interface so an ErrorResponse can be passed to c.Error.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse, copying err's text when non-nil.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
