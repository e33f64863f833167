package dto

import "net/http"

// Envelope wraps every API response.
type Envelope struct {
	Code    int     `json:"code"`
	Data    any     `json:"data"`
	Message *string `json:"message"`
}

// Success wraps data in a 200 envelope.
func Success(data any) Envelope {
	return Envelope{Code: http.StatusOK, Data: data}
}

// Failure builds an error envelope.
func Failure(code int, message string) Envelope {
	return Envelope{Code: code, Message: &message}
}
