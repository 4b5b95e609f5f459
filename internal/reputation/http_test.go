package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reputation", r.URL.Path)
		assert.Equal(t, "1,2", r.URL.Query().Get("ids"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]registryScore{{AgentID: 1, Score: 0.7}, {AgentID: 9, Score: 1}})
	}))
	defer srv.Close()

	got, err := NewHTTPSource(srv.URL+"/", "k", "").Scores(context.Background(), []uint64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]float64{1: 0.7}, got, "unrequested ids are dropped")
}

func TestFallbackOnRegistryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	primary := NewHTTPSource(srv.URL, "", "")
	_, err := primary.Scores(context.Background(), []uint64{1})
	assert.ErrorContains(t, err, "status 503")

	f := &Fallback{Primary: primary, Secondary: NewStatic(map[uint64]float64{1: 3})}
	got, err := f.Scores(context.Background(), []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got[1])
}
