package serverutils

type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func SuccessResponse[T any](message string, data T) *Response[T] {
	return &Response[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

func ErrorResponse(code int, detail string) *ErrorBody {
	return &ErrorBody{Code: code, Detail: detail}
}
