package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/profile"
	"github.com/newthinker/folio/internal/storage/archive"
	"github.com/newthinker/folio/internal/storage/state"
)

func newProfiles(t *testing.T) *profile.Service {
	t.Helper()
	svc := profile.NewService(state.NewStore(archive.NewMemory(), "", nil), nil, nil)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

// dataOf decodes the data member of a success envelope into v.
func dataOf(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}
