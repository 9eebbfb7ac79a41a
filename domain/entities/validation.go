package entities

// ValidationResult represents the outcome of validating a manifest document.
type ValidationResult struct {
	Errors []ValidationError
	Valid  bool
}

// ValidationError represents a specific validation error.
type ValidationError struct {
	Field   string
	Message string
}
