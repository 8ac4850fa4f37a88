package cli

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewApp_ServesSeededCatalogAndMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.Seed = []config.ProductSeed{
		{ID: "p-1", Name: "Laptop", Price: 1500, Stock: 4, Category: "electronics"},
	}

	a, err := newApp(cfg, zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Nil(t, a.relay, "no brokers, no relay")

	srv := httptest.NewServer(a.server.Handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/products/p-1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"Laptop"`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "http_requests_total"))
}

func TestNewApp_WiresKafkaRelayWhenBrokersSet(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	a, err := newApp(cfg, zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, a.relay)
	require.NoError(t, a.relay.Close())
}
