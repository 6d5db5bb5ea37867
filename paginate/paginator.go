// Package paginate implements cursor pagination over echo query parameters.
// The cursor handed to clients is the URL-safe base64 form of the last item's
// key, and pages are fetched one item larger than requested to detect whether
// another page follows.
package paginate

import (
	"encoding/base64"
	"strconv"

	"github.com/cohesivestack/valgo"
	"github.com/labstack/echo/v4"
)

const (
	MaxPageSize          = int32(500)
	DefaultPageSize      = int32(100)
	PageSizeQueryParam   = "page_size"
	PageCursorQueryParam = "page_cursor"
)

// PageFilter is handed to a ListFunc. Size is one more than the page size and
// Cursor, when set, is the key of the last item of the previous page.
type PageFilter[C comparable] struct {
	Size   int32
	Cursor *C
}

type CursorParserFunc[C comparable] func(rawCursor string) (*C, error)

type CursorGetterFunc[T any] func(item T) string

type ListFunc[T any, C comparable] func(filter PageFilter[C]) ([]T, error)

type Config[T any, C comparable] struct {
	CursorParser CursorParserFunc[C]
	CursorGetter CursorGetterFunc[T]
	Lister       ListFunc[T, C]
}

func Paginate[T any, C comparable](c echo.Context, config Config[T, C]) ([]T, string, error) {
	filter, err := pageFilterFromQueryParams[C](c, config.CursorParser)
	if err != nil {
		return nil, "", err
	}

	items, err := config.Lister(filter)
	if err != nil {
		return nil, "", err
	}

	// the cursor is exclusive, so it points at the last item returned rather
	// than the extra one used to detect the next page
	cursor := ""
	if len(items) == int(filter.Size) {
		items = items[:len(items)-1]
		cursor = EncodeCursor(config.CursorGetter(items[len(items)-1]))
	}

	return items, cursor, nil
}

// EncodeCursor returns the form of rawCursor handed to clients.
func EncodeCursor(rawCursor string) string {
	return base64.URLEncoding.EncodeToString([]byte(rawCursor))
}

func pageFilterFromQueryParams[C comparable](c echo.Context, cursorParser CursorParserFunc[C]) (PageFilter[C], error) {
	const queryParamsTitle = "query_params"

	filter := PageFilter[C]{
		Size: DefaultPageSize,
	}

	sizeStr := c.QueryParam(PageSizeQueryParam)
	if sizeStr != "" {
		size64, err := strconv.ParseInt(sizeStr, 10, 32)
		if err != nil {
			return filter, valgo.In(queryParamsTitle, valgo.AddErrorMessage(PageSizeQueryParam, "Must be a number")).Error()
		}

		filter.Size = int32(size64)
		verr := valgo.In(queryParamsTitle, valgo.Is(valgo.Int32(filter.Size, PageSizeQueryParam).Between(int32(1), MaxPageSize))).Error()
		if verr != nil {
			return filter, verr
		}
	}

	filter.Size++ // add one more so we can check if there is another page to return

	b64Cursor := c.QueryParam(PageCursorQueryParam)
	if b64Cursor != "" {
		verr := valgo.In(queryParamsTitle, valgo.AddErrorMessage(PageCursorQueryParam, "Must be a valid cursor")).Error()

		cursor, err := base64.URLEncoding.DecodeString(b64Cursor)
		if err != nil {
			return filter, verr
		}

		filter.Cursor, err = cursorParser(string(cursor))
		if err != nil {
			return filter, verr
		}
	}

	return filter, nil
}
