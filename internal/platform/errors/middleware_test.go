package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/stream/start", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, Middleware()(h)(c)
}

func TestMiddlewareWithStructuredError(t *testing.T) {
	HTTPErrorsTotal.Reset()

	rec, err := serve(t, func(echo.Context) error {
		return ConflictError("already streaming")
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "already streaming", resp.Error)
	assert.Equal(t, TypeConflict, resp.Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("conflict")))
}

func TestMiddlewareWithStandardError(t *testing.T) {
	HTTPErrorsTotal.Reset()

	rec, err := serve(t, func(echo.Context) error {
		return fmt.Errorf("standard error")
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("internal")))
}

func TestMiddlewareWithNoError(t *testing.T) {
	rec, err := serve(t, func(c echo.Context) error {
		return c.NoContent(http.StatusAccepted)
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMiddlewarePassesEchoHTTPError(t *testing.T) {
	HTTPErrorsTotal.Reset()

	_, err := serve(t, func(echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed json")
	})

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("validation")))
}
