package common

// AppError is an error that knows how to render itself at the HTTP
// boundary: a status, a stable machine-readable code and a message
// safe to show the client.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// NewAppError builds an AppError for the given status and code.
func NewAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// WithDetails attaches a details payload rendered alongside the error.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}
