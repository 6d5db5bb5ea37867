package server

import (
	"fmt"
	"strings"
)

// Response wraps a single resource as {"data": ...}.
type Response[T any] struct {
	Data T `json:"data"`
}

// ResponseList wraps a page of resources. NextPageCursor is omitted on the
// last page.
type ResponseList[T any] struct {
	Data           []T     `json:"data"`
	NextPageCursor *string `json:"next_page_cursor,omitempty"`
}

// ResponseError is the body of every non-2xx response.
type ResponseError struct {
	Error HTTPError `json:"error"`
}

// HTTPError is a client facing error. Internal carries the full cause for
// logs and is never serialized.
type HTTPError struct {
	Code     int      `json:"-"`
	Internal string   `json:"-"`
	Message  string   `json:"message"`
	Details  []string `json:"details,omitempty"`
}

func (e HTTPError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, "; "))
}

type HealthResponse struct {
	Status string `json:"status"`
}
