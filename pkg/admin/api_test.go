package admin

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/logging"
	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/service"
	"github.com/mocknest/mocknest/pkg/store"
)

func TestRespondServiceError_CodeMapping(t *testing.T) {
	a := &API{log: logging.Nop()}

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &model.ValidationError{Field: "name", Message: "required"}, types.CodeValidation},
		{"allocation exhausted", service.ErrAllocationExhausted, types.CodeConflict},
		{"username taken", service.ErrUsernameTaken, types.CodeConflict},
		{"email taken", service.ErrEmailTaken, types.CodeConflict},
		{"invalid credentials", service.ErrInvalidCredentials, types.CodeInvalidCredentials},
		{"account disabled", service.ErrAccountDisabled, types.CodeAccountDisabled},
		{"not found", store.ErrNotFound, types.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.respondServiceError(rec, "test", tc.err)

			require.Equal(t, 200, rec.Code)
			var resp types.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestRespondServiceError_UnexpectedIsSanitized(t *testing.T) {
	a := &API{log: logging.Nop()}
	rec := httptest.NewRecorder()
	a.respondServiceError(rec, "test", errors.New("dsn=postgres://admin:hunter2@db/prod"))

	assert.Equal(t, 500, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestRespondServiceError_WrappedErrors(t *testing.T) {
	a := &API{log: logging.Nop()}
	rec := httptest.NewRecorder()

	// Services wrap storage sentinels; the mapping must see through.
	a.respondServiceError(rec, "test", errors.Join(errors.New("create group"), store.ErrNotFound))

	var resp types.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.CodeNotFound, resp.Code)
}
