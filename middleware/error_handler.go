package middleware

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"` // HTTP status code as string
}

// clientFacing lists the error types whose detail is safe to return outside
// debug mode. Split and settlement errors carry the amounts the caller needs
// to correct the request.
var clientFacing = map[errors.ErrorType]bool{
	errors.ValidationError:         true,
	errors.NotFoundError:           true,
	errors.InvalidSplitInput:       true,
	errors.StrongAuthRequiredError: true,
	errors.InvalidStatusTransition: true,
	errors.RateLimitError:          true,
}

// ErrorHandler renders the last error attached to the context with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		last := c.Errors.Last()
		err := last.Err

		var appError *errors.AppError
		if stderrors.As(err, &appError) {
			statusCode := appError.GetHTTPStatus()
			logger.LogHTTPError(c, err, statusCode, fmt.Sprintf("%s error", appError.Type))

			response := ErrorResponse{
				Type:    string(appError.Type),
				Message: appError.Message,
				Code:    strconv.Itoa(statusCode),
			}
			if appError.Detail != "" && (gin.IsDebugging() || clientFacing[appError.Type]) {
				response.Details = appError.Detail
			}

			c.JSON(statusCode, response)
			return
		}

		switch last.Type {
		case gin.ErrorTypeBind:
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Request binding error")
			response := ErrorResponse{
				Type:    string(errors.ValidationError),
				Message: "Failed to bind request",
				Code:    strconv.Itoa(http.StatusBadRequest),
			}
			if gin.IsDebugging() {
				response.Details = err.Error()
			}
			c.JSON(http.StatusBadRequest, response)
		case gin.ErrorTypePublic:
			logger.LogHTTPError(c, err, http.StatusBadRequest, "Public error")
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Type:    string(errors.ValidationError),
				Message: err.Error(),
				Code:    strconv.Itoa(http.StatusBadRequest),
			})
		default:
			logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unexpected server error")
			response := ErrorResponse{
				Type:    string(errors.ServerError),
				Message: "Internal Server Error",
				Code:    strconv.Itoa(http.StatusInternalServerError),
			}
			if gin.IsDebugging() {
				response.Details = err.Error()
			}
			c.JSON(http.StatusInternalServerError, response)
		}
	}
}
