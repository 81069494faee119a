package errors

type InternalError struct {
	message string
}

func NewInternalError(msg string) *InternalError {
	return &InternalError{
		message: msg,
	}
}

func (ie *InternalError) Error() string {
	return ie.message
}

func (ie *InternalError) Internal() {}
