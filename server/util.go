package server

import (
	"github.com/labstack/echo/v4"
)

type validatable interface {
	Validate() error
}

// BindRequest binds the request body, path and query parameters into T and
// validates the result.
func BindRequest[T validatable](c echo.Context) (T, error) {
	var req T
	if err := c.Bind(&req); err != nil {
		return req, err
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

func SetResponse[T any](c echo.Context, code int, data T) error {
	return c.JSON(code, &Response[T]{
		Data: data,
	})
}

// SetResponseList writes a page of data. nextCursor is the opaque cursor of
// the following page, or empty on the last page.
func SetResponseList[T any](c echo.Context, code int, data []T, nextCursor string) error {
	res := &ResponseList[T]{
		Data: data,
	}
	if nextCursor != "" {
		res.NextPageCursor = &nextCursor
	}
	return c.JSON(code, res)
}

func SetResponseError(c echo.Context, code int, err HTTPError) error {
	return c.JSON(code, &ResponseError{
		Error: err,
	})
}
