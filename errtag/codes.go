package errtag

import "net/http"

// CodeInternal maps an error kind to 500 Internal Server Error.
type CodeInternal struct{}

func (CodeInternal) Code() int { return http.StatusInternalServerError }

// CodeBadRequest maps an error kind to 400 Bad Request.
type CodeBadRequest struct{}

func (CodeBadRequest) Code() int { return http.StatusBadRequest }

// CodeNotFound maps an error kind to 404 Not Found.
type CodeNotFound struct{}

func (CodeNotFound) Code() int { return http.StatusNotFound }

// CodeConflict maps an error kind to 409 Conflict.
type CodeConflict struct{}

func (CodeConflict) Code() int { return http.StatusConflict }

// CodeUnprocessable maps an error kind to 422 Unprocessable Entity. It is used
// for well formed requests whose payload cannot be processed, such as
// ciphertext that fails to decrypt.
type CodeUnprocessable struct{}

func (CodeUnprocessable) Code() int { return http.StatusUnprocessableEntity }

// CodeUnavailable maps an error kind to 503 Service Unavailable.
type CodeUnavailable struct{}

func (CodeUnavailable) Code() int { return http.StatusServiceUnavailable }
