package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Request errors, as classified by the API clients
	ErrTimeout      = fmt.Errorf("request timeout")
	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrValidation   = fmt.Errorf("validation error")
	ErrNotFound     = fmt.Errorf("not found")
	ErrService      = fmt.Errorf("service error")

	// Client-side preconditions
	ErrUnauthenticated = fmt.Errorf("you must be logged in")
	ErrInvalidRange    = fmt.Errorf("rating must be between 1 and 5")
	ErrCourseNotActive = fmt.Errorf("course rating view not active")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
