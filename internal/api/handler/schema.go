package handler

// errorResponse documents the error envelope rendered by the API error
// handler. Bearer failures carry only the message.
type errorResponse struct {
	Error   string `json:"error,omitempty" example:"INVALID_CREDENTIALS"`
	Message string `json:"message" example:"Invalid username or password."`
}
