package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mfcosta-games/cyber-siege-backend/internal/catalog"
	"github.com/mfcosta-games/cyber-siege-backend/internal/engine"
	"github.com/mfcosta-games/cyber-siege-backend/internal/registry"
)

func testServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	reg := registry.New(ctx, engine.New(cat), registry.Options{Clock: clockwork.NewFakeClock()})

	srv := httptest.NewServer(SetupRoutes(reg, cat, zap.NewNop(), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv, reg
}

func TestCreateRoom(t *testing.T) {
	srv, reg := testServer(t)

	resp, err := http.Post(srv.URL+"/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Code, 4)
	assert.Equal(t, strings.ToUpper(body.Code), body.Code)

	// The room is live immediately so the host can share the code.
	assert.NotNil(t, reg.Lookup(body.Code))
}

func TestThemesPassThrough(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/themes")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var doc struct {
		Themes []catalog.Theme `json:"themes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Len(t, doc.Themes, 11)
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
