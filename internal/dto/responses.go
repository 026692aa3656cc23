package dto

// FlowResponse: ответ потоковых эндпоинтов (OTP, вход, смена кода).
type FlowResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse: ответ с ошибкой. Message всегда пригоден для показа пользователю.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ListResponse: страница списка.
type ListResponse struct {
	Data   any `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// CountResponse: ответ со счётчиком.
type CountResponse struct {
	Count int `json:"count"`
}
