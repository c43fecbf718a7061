package notebook

// InvalidInputError is returned when caller-supplied input cannot be used,
// e.g. an upload whose sanitized filename is empty.
type InvalidInputError struct {
	Reason string
}

func (e InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}
