package controllers

import (
	"io"
	"strconv"

	"natours/errs"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// handle adapts a handler returning an error. The error is recorded on the
// context and rendered by middleware.ErrorHandler.
func handle(fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			fail(c, err)
		}
	}
}

func parseID(c *gin.Context, param string) (uint, error) {
	raw := c.Param(param)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, errs.InvalidID(param, raw)
	}
	return uint(n), nil
}

// bindJSON decodes the request body into v. An empty body is a client error.
func bindJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.BadRequest("Request body is empty")
		}
		return err
	}
	return nil
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errs.BadRequest("Request body is empty")
	}
	return body, nil
}

// fail records err for middleware.ErrorHandler and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
