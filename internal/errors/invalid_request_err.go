package errors

type InvalidRequestError struct {
	message string
}

func NewInvalidRequestError(msg string) *InvalidRequestError {
	return &InvalidRequestError{
		message: msg,
	}
}

func (ire *InvalidRequestError) Error() string {
	return ire.message
}

func (ire *InvalidRequestError) InvalidRequest() {}
