package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStrategyAttempt(t *testing.T) {
	c := NewCollector("test")

	c.RecordStrategyAttempt("managed-ambient", "succeeded")
	c.RecordStrategyAttempt("managed-ambient", "succeeded")
	c.RecordStrategyAttempt("manual", "failed-recoverable")

	assert.Equal(t, float64(2), testutil.ToFloat64(
		c.attachAttempts.WithLabelValues("managed-ambient", "succeeded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.attachAttempts.WithLabelValues("manual", "failed-recoverable")))
}

func TestRecordAttachSetsMountedGauge(t *testing.T) {
	c := NewCollector("test")

	c.RecordAttach(true, 120*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.mountedGauge))

	c.RecordAttach(false, 30*time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(c.mountedGauge))
}

func TestRecordSync(t *testing.T) {
	c := NewCollector("test")

	c.RecordSync("mount", true)
	c.RecordSync("backup", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.syncTotal.WithLabelValues("mount", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.syncTotal.WithLabelValues("backup", "failure")))
}

func TestHandlerServesMetrics(t *testing.T) {
	c := NewCollector("test")
	c.RecordProbeTimeout("mount")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "test_probe_timeouts_total")
}
