package errors

type EmptyCompletionError struct {
	message string
}

func NewEmptyCompletionError() *EmptyCompletionError {
	return &EmptyCompletionError{
		message: "empty response from the model",
	}
}

func (ece *EmptyCompletionError) Error() string {
	return ece.message
}

func (ece *EmptyCompletionError) EmptyCompletion() {}
