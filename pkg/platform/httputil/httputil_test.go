package httputil

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	write := func(err error) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		WriteError(rr, err)
		return rr
	}

	t.Run("client errors carry a description", func(t *testing.T) {
		rr := write(dErrors.New(dErrors.CodeInvalidInput, "purpose is required"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"invalid_input"`)
		assert.Contains(t, rr.Body.String(), "purpose is required")
	})

	t.Run("server faults omit the description", func(t *testing.T) {
		for _, code := range []dErrors.Code{
			dErrors.CodeCryptoFailure,
			dErrors.CodeIssuanceFailure,
			dErrors.CodeInternal,
			dErrors.CodeStoreUnavailable,
		} {
			rr := write(dErrors.New(code, "database password is hunter2"))
			assert.GreaterOrEqual(t, rr.Code, http.StatusInternalServerError, "code %s", code)
			assert.NotContains(t, rr.Body.String(), "hunter2", "code %s leaked its message", code)
			assert.NotContains(t, rr.Body.String(), "error_description", "code %s", code)
		}
	})

	t.Run("authentication failures share one opaque shape", func(t *testing.T) {
		unknown := write(dErrors.New(dErrors.CodeUnknownOrInactive, "no identity with that number"))
		invalid := write(dErrors.New(dErrors.CodeInvalidCode, "hmac mismatch at step 12345"))

		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, http.StatusUnauthorized, invalid.Code)
		assert.Equal(t, unknown.Body.String(), invalid.Body.String())
		assert.Contains(t, unknown.Body.String(), `"unauthorized"`)
		assert.Contains(t, unknown.Body.String(), "authentication failed")
		assert.NotContains(t, invalid.Body.String(), "hmac")
	})

	t.Run("internal family collapses to internal_error", func(t *testing.T) {
		rr := write(dErrors.New(dErrors.CodeInvariantViolation, "counter went negative"))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), `"internal_error"`)
	})

	t.Run("untyped errors render as internal", func(t *testing.T) {
		rr := write(errors.New("plain error"))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "plain error")
	})
}

type fakeRequest struct {
	Name string `json:"name"`
}

func (r *fakeRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	decode := func(body string) (*fakeRequest, bool, *httptest.ResponseRecorder) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		out, ok := DecodeAndPrepare[fakeRequest](rr, req, logger, req.Context(), "req-1")
		return out, ok, rr
	}

	t.Run("valid body decodes", func(t *testing.T) {
		out, ok, _ := decode(`{"name":"x"}`)
		require.True(t, ok)
		assert.Equal(t, "x", out.Name)
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		_, ok, rr := decode(`{`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"invalid_input"`)
	})

	t.Run("validation failures write the typed error", func(t *testing.T) {
		_, ok, rr := decode(`{}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "name is required")
	})
}
