package view

// Response is the envelope every API handler replies with.
type Response[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Request any    `json:"request,omitempty"`
}

// ErrorResponse documents the envelope of failed requests.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Request any    `json:"request,omitempty"`
}

// CreateResponse builds the envelope. The request is echoed back only when
// err is set.
func CreateResponse[T any](data T, err error, req any, msg string) Response[T] {
	resp := Response[T]{
		Data:    data,
		Message: msg,
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Request = req
	}
	return resp
}
