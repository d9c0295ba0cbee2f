package importer

// ValidationError records a document problem with source context.
type ValidationError struct {
	Source string // file the document came from, if any
	Field  string // validator namespace, e.g. Document.Items[2].Or[0]
	Err    error
}

// Error returns a human-readable string including source file and field.
func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
