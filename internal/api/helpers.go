package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/datkit/internal/report"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", nil)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", nil)
}

// writeDecodeError reports a file that failed to load or save.
func writeDecodeError(c *echo.Context, err error) error {
	d := report.Error(err)
	return writeError(c, http.StatusUnprocessableEntity, "decode_error", err.Error(), d.Field, &d)
}

func writeError(c *echo.Context, status int, errType, msg, param string, detail *report.ErrorDetail) error {
	return writeJSON(c, status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Param:   param,
			Detail:  detail,
		},
	})
}

// writeJSON encodes v with go-json.
func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSON, b)
}

func boolParam(c *echo.Context, name string) bool {
	q := c.QueryParam(name)
	return q == "1" || strings.EqualFold(q, "true")
}

func indexParam(c *echo.Context) (int, error) {
	raw := c.Param("index")
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, newInvalidRequest("index", fmt.Sprintf("invalid chunk index %q", raw))
	}
	return i, nil
}

func chunkIDParam(c *echo.Context) (uint64, error) {
	raw := c.Param("chunkID")
	base := 10
	if s, ok := strings.CutPrefix(strings.ToLower(raw), "0x"); ok {
		raw, base = s, 16
	}
	id, err := strconv.ParseUint(raw, base, 64)
	if err != nil {
		return 0, newInvalidRequest("chunkID", fmt.Sprintf("invalid chunk id %q", c.Param("chunkID")))
	}
	return id, nil
}

func requestError(c *echo.Context, err error) error {
	var ire invalidRequestError
	if errors.As(err, &ire) {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", ire.msg, ire.param, nil)
	}
	if errors.Is(err, ErrTooLarge) {
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error", err.Error(), "", nil)
	}
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", nil)
}

func newFileID() string {
	return "file_" + uuid.NewString()
}
