package app

import (
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/labstack/echo/v4"

	"github.com/stolasapp/animes/internal/pagination"
	"github.com/stolasapp/animes/internal/storage"
)

// toHTTPError converts an error to an Echo HTTPError with the appropriate
// HTTP status code. ConnectRPC errors are mapped to their corresponding HTTP
// status codes and storage errors to client errors. Anything else becomes a
// generic 500 with the cause kept as the internal error.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}

	// Already an HTTP error - pass through
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var paramErr pagination.ParamError
	if errors.As(err, &paramErr) {
		return echo.NewHTTPError(http.StatusBadRequest, paramErr.Error()).WithInternal(err)
	}

	var storageErr storage.Error
	if errors.As(err, &storageErr) {
		switch storageErr {
		case storage.ErrNotFound, storage.ErrInvalidName, storage.ErrInvalidUsername:
			return echo.NewHTTPError(http.StatusBadRequest, storageErr.Error())
		case storage.ErrAlreadyExists:
			return echo.NewHTTPError(http.StatusConflict, storageErr.Error())
		}
		return echo.ErrInternalServerError.WithInternal(err)
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		status := connectCodeToHTTPStatus(connectErr.Code())
		if status != http.StatusInternalServerError {
			return echo.NewHTTPError(status, connectErr.Message()).WithInternal(err)
		}
	}

	return echo.ErrInternalServerError.WithInternal(err)
}

// notFoundAs replaces a [storage.ErrNotFound] with a 400 carrying msg, the
// response for absent resources on this API.
func notFoundAs(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	return toHTTPError(err)
}

// connectCodeToHTTPStatus maps ConnectRPC error codes to HTTP status codes.
// See: https://connectrpc.com/docs/protocol/#error-codes
func connectCodeToHTTPStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeOutOfRange:
		return http.StatusBadRequest // 400
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized // 401
	case connect.CodePermissionDenied:
		return http.StatusForbidden // 403
	case connect.CodeNotFound:
		return http.StatusNotFound // 404
	case connect.CodeCanceled:
		return http.StatusRequestTimeout // 408
	case connect.CodeAlreadyExists, connect.CodeAborted:
		return http.StatusConflict // 409
	case connect.CodeResourceExhausted:
		return http.StatusTooManyRequests // 429
	case connect.CodeUnimplemented:
		return http.StatusNotImplemented // 501
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable // 503
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout // 504
	case connect.CodeInternal, connect.CodeDataLoss, connect.CodeUnknown:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}
