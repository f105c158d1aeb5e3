package exceptions

import (
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInputValidation = func(err error) *CustomError {
		return BuildNewCustomError(err, http.StatusBadRequest, FormatFirstValidationError(err), ErrDevValidationFailed)
	}
	ErrCannotBindRequest = func(err error) *CustomError {
		return BuildNewCustomError(err, http.StatusBadRequest, ErrClientCannotProcessRequest, ErrDevCannotBindRequest)
	}
	ErrInvalidObjectID = func(err error, field string) *CustomError {
		return BuildNewCustomError(err, http.StatusBadRequest, fmt.Sprintf("Valid %s is required", field), fmt.Sprintf(ErrDevInvalidObjectID, field))
	}
	ErrMissingField = func(field string) *CustomError {
		return BuildNewCustomError(nil, http.StatusBadRequest, fmt.Sprintf("%s is required", field), fmt.Sprintf(ErrDevMissingField, field))
	}
	ErrInvalidValue = func(field, value string, allowed []string) *CustomError {
		return BuildNewCustomError(nil, http.StatusBadRequest,
			fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")),
			fmt.Sprintf("invalid %s %q", field, value))
	}
	ErrQueueUpdateEmpty = func() *CustomError {
		return BuildNewCustomError(nil, http.StatusBadRequest, "queueStatus or status is required", ErrDevUnsupportedQueueUpdate)
	}
	ErrNotFound = func(err error, entity string) *CustomError {
		return BuildNewCustomError(err, http.StatusNotFound, fmt.Sprintf("%s not found", entity), fmt.Sprintf(ErrDevDocumentNotFound, entity))
	}
	ErrNoLinkedDoctors = func() *CustomError {
		return BuildNewCustomError(nil, http.StatusNotFound, ErrClientNoLinkedDoctors, ErrDevNoLinkedDoctors)
	}
	ErrInvalidTransition = func(from, to string) *CustomError {
		return BuildNewCustomError(nil, http.StatusConflict,
			fmt.Sprintf("Cannot change appointment from %s to %s", from, to),
			fmt.Sprintf(ErrDevInvalidTransition, from, to))
	}
	ErrStoreOperation = func(err error, op string) *CustomError {
		return BuildNewCustomError(err, http.StatusInternalServerError, ErrClientSomethingWrongWithApplication, fmt.Sprintf(ErrDevStoreOperation, op))
	}
	ErrStoreUnavailable = func(err error) *CustomError {
		return BuildNewCustomError(err, http.StatusServiceUnavailable, ErrClientServiceUnavailable, ErrDevStoreUnavailable)
	}
	ErrInvalidCredentials = func(err error) *CustomError {
		return BuildNewCustomError(err, http.StatusUnauthorized, ErrClientInvalidCredentials, ErrDevInvalidCredentials)
	}
	ErrAccountInactive = func() *CustomError {
		return BuildNewCustomError(nil, http.StatusForbidden, ErrClientAccountInactive, ErrDevAccountInactive)
	}
	ErrTokenMissing = func() *CustomError {
		return BuildNewCustomError(nil, http.StatusUnauthorized, ErrClientNotAuthorized, ErrDevAuthTokenMissing)
	}
	ErrTokenInvalidOrExpired = func(err error) *CustomError {
		return BuildNewCustomError(err, http.StatusUnauthorized, ErrClientSessionExpired, ErrDevAuthTokenInvalid)
	}
	ErrTokenGenerate = func(err error) *CustomError {
		return BuildNewCustomError(err, http.StatusInternalServerError, ErrClientSomethingWrongWithApplication, ErrDevAuthGenerateToken)
	}
	ErrHashPassword = func(err error) *CustomError {
		return BuildNewCustomError(err, http.StatusInternalServerError, ErrClientSomethingWrongWithApplication, ErrDevFailedToHashPassword)
	}
	ErrTooManyRequests = func() *CustomError {
		return BuildNewCustomError(nil, http.StatusTooManyRequests, ErrClientTooManyRequests, ErrDevRateLimited)
	}
)
