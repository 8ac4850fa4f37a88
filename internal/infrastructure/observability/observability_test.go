package observability_test

import (
	"context"
	"testing"

	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FallsBackToNop(t *testing.T) {
	tel := infraobs.New(infraobs.Options{})

	require.NotNil(t, tel.Tracer())
	require.NotNil(t, tel.Logger())
	_, span := tel.Tracer().Start(context.Background(), "UC.Test")
	span.End()

	assert.NotPanics(t, func() {
		tel.Metrics().Counter(observability.MUsecaseRequests).Add(1)
		tel.Metrics().Histogram(observability.MUsecaseDuration).Observe(0.1)
	})
}

func TestWithPrometheus_RecordsOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel := infraobs.WithPrometheus(reg, "", nil, nil)

	tel.Metrics().Counter(observability.MUsecaseRequests).Add(1,
		observability.L("use_case", "order.create"),
		observability.L("outcome", "success"),
	)
	tel.Metrics().Counter(observability.MetricKey("unregistered_total")).Add(1)

	n, err := testutil.GatherAndCount(reg, string(observability.MUsecaseRequests))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
