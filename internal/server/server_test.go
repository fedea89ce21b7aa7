package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliolab/folio/internal/marketdata"
	"github.com/foliolab/folio/internal/modules/backtest"
	"github.com/foliolab/folio/internal/modules/optimization"
	testingpkg "github.com/foliolab/folio/internal/testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	start := time.Now().AddDate(0, -10, 0)
	provider := testingpkg.NewStaticProvider()
	closes := make([]float64, 150)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	provider.AddSeries("AAA", start, closes)
	provider.AddSeries("BBB", start, closes)

	builder := marketdata.NewMatrixBuilder(provider, zerolog.Nop())
	optService := optimization.NewService(builder, provider, nil, zerolog.Nop())
	btService := backtest.NewService(builder, zerolog.Nop())

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "AAA.db"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "BBB.db"), nil, 0644))

	return New(Config{
		Port:             0,
		Log:              zerolog.Nop(),
		DataDir:          dataDir,
		DevMode:          true,
		OptimizerHandler: optimization.NewHandler(optService, zerolog.Nop()),
		BacktestHandler:  backtest.NewHandler(btService, zerolog.Nop()),
	})
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	}
}

func TestSystemStatusRoute(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/system/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status SystemStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 2, status.SymbolCount)
}

func TestOptimizerRoutesMounted(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/optimizer/risk-profiles", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	body := `{"symbols":["AAA","BBB"],"period":"6mo"}`
	req = httptest.NewRequest("POST", "/api/optimizer/optimize", strings.NewReader(body))
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBacktestRoutesMounted(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/backtest/quick?symbols=AAA,BBB&period=6mo", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/nope", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
