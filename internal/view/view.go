package view

// Response is the envelope every API endpoint answers with.
type Response[T any] struct {
	Data    T           `json:"data"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Request interface{} `json:"request,omitempty"`
}

type MessageResponse struct {
	Data    string `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateResponse wraps data or an error. The request is echoed back only on errors.
func CreateResponse[T any](data T, err error, req interface{}, message string) Response[T] {
	res := Response[T]{
		Data:    data,
		Message: message,
	}
	if err != nil {
		res.Error = err.Error()
		res.Request = req
	}
	return res
}
