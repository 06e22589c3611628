package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"natours/errs"
	"natours/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	genericAPIMessage  = "Something went very wrong!"
	genericPageMessage = "Please try again later."
	pageErrorTitle     = "Something went wrong!"
)

// PageRenderer draws the HTML error page for requests outside /api.
type PageRenderer func(c *gin.Context, status int, title, msg string)

// ErrorHandler turns the last error recorded on the context into a response.
// In development the real message and stack are shown; elsewhere errors that
// are not operational are logged and replaced by a generic message.
func ErrorHandler(development bool, log zerolog.Logger, page PageRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		appErr := errs.Translate(err)
		status := http.StatusInternalServerError
		if appErr != nil {
			status = appErr.StatusCode
		}
		api := strings.HasPrefix(c.Request.URL.Path, "/api") || page == nil

		if development {
			msg := err.Error()
			if appErr != nil {
				msg = appErr.Message
			}
			if !api {
				page(c, status, pageErrorTitle, msg)
				return
			}
			c.JSON(status, gin.H{
				"status":  errs.StatusFor(status),
				"error":   errorBody(err, appErr),
				"message": msg,
				"stack":   fmt.Sprintf("%+v", err),
			})
			return
		}

		if appErr == nil || !appErr.IsOperational {
			log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("unexpected error")
			if api {
				utils.JSONError(c, http.StatusInternalServerError, "error", genericAPIMessage)
			} else {
				page(c, http.StatusInternalServerError, pageErrorTitle, genericPageMessage)
			}
			return
		}

		if api {
			utils.JSONError(c, status, appErr.Status, appErr.Message)
			return
		}
		page(c, status, pageErrorTitle, appErr.Message)
	}
}

func errorBody(err error, appErr *errs.AppError) interface{} {
	if appErr != nil {
		return appErr
	}
	return gin.H{"message": err.Error(), "isOperational": false}
}

// NoRoute reports unknown paths as operational 404s.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWith(c, errs.NotFound(fmt.Sprintf("Can't find %s on this server!", c.Request.URL.RequestURI())))
	}
}

// Recovery converts a panic into an error for ErrorHandler, so it must be
// registered after it.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec interface{}) {
		abortWith(c, errors.Errorf("panic: %v", rec))
	})
}
