package services

import "errors"

// Sentinel errors surfaced to the request boundary. Handlers map them to
// status codes with errors.Is; the messages are the exact strings the API
// returns, so the frontend contract stays stable.
var (
	ErrTitleRequired      = errors.New("Title is required")
	ErrTitleTooLong       = errors.New("Title must be at most 200 characters")
	ErrDescriptionTooLong = errors.New("Description must be at most 1000 characters")
	ErrInvalidStatus      = errors.New("Invalid status. Must be one of: To Do, In Progress, Completed")
	ErrInvalidPriority    = errors.New("Invalid priority. Must be one of: Low, Medium, High")
	ErrStatusRequired     = errors.New("Status is required")
	ErrNegativeEstimate   = errors.New("Estimated time must not be negative")
	ErrTaskNotFound       = errors.New("Task not found or you do not have permission")

	ErrEmailTaken         = errors.New("User already exists")
	ErrUsernameTaken      = errors.New("Username is already taken")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrResetTokenInvalid  = errors.New("Password reset token is invalid or has expired.")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError bundles per-field messages for payloads where more than one
// field can be wrong at once. Handlers unwrap it with errors.As.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "Validation failed"
}
