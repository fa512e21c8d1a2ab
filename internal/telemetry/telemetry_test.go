package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupExportsSpans(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := Setup(context.Background(), Config{Endpoint: srv.URL, ServiceName: "test", Version: "dev"})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "analysis.Analyze")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestTracesURL(t *testing.T) {
	got, err := tracesURL("http://collector:4318")
	require.NoError(t, err)
	assert.Equal(t, "http://collector:4318/v1/traces", got)

	got, err = tracesURL("https://otel.example.com/custom/traces")
	require.NoError(t, err)
	assert.Equal(t, "https://otel.example.com/custom/traces", got)

	_, err = tracesURL("collector:4318")
	assert.Error(t, err)
}
