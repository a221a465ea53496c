package service

import (
	"errors"

	"commerce-service/internal/models"

	"go.uber.org/zap"
)

const unexpectedErrorMessage = "An error occurred while processing your request"

// Result is the outcome of a service operation. Expected failures are carried
// here instead of as Go errors; Kind tells the transport how to report them.
type Result[T any] struct {
	Success bool             `json:"success"`
	Data    T                `json:"data"`
	Message string           `json:"message"`
	Errors  []string         `json:"errors"`
	Kind    models.ErrorKind `json:"-"`
}

func ok[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: message, Errors: []string{}}
}

// fail converts err into a failed Result. Domain errors keep their message;
// anything else is logged and hidden behind a generic message.
func fail[T any](logger *zap.Logger, operation string, err error) Result[T] {
	kind := models.KindOf(err)
	if kind == models.KindUnexpected {
		logger.Error("Unexpected error", zap.String("operation", operation), zap.Error(err))
		return Result[T]{Message: unexpectedErrorMessage, Errors: []string{unexpectedErrorMessage}, Kind: kind}
	}

	message := err.Error()
	errs := []string{message}
	var domainErr *models.Error
	if errors.As(err, &domainErr) && len(domainErr.Details) > 0 {
		errs = domainErr.Details
	}
	return Result[T]{Message: message, Errors: errs, Kind: kind}
}
