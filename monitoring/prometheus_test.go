package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	SetChainHeight(41, 42)
	assert.Equal(t, float64(41), testutil.ToFloat64(metrics().chainHeight))
	assert.Equal(t, float64(42), testutil.ToFloat64(metrics().chainLength))

	before := testutil.ToFloat64(metrics().rejectedBlockCount.WithLabelValues(string(BlockHashNotConnecting)))
	RecordRejectedBlock(BlockHashNotConnecting)
	after := testutil.ToFloat64(metrics().rejectedBlockCount.WithLabelValues(string(BlockHashNotConnecting)))
	assert.Equal(t, before+1, after)

	purged := testutil.ToFloat64(metrics().purgedBlockCount)
	RecordPurgedBlocks(10)
	assert.Equal(t, purged+10, testutil.ToFloat64(metrics().purgedBlockCount))

	RecordPersist(3*time.Millisecond, 512)
	IncreasePanicCount()
}

func TestRegisterMetrics(t *testing.T) {
	IncreaseAddedBlockCount()

	mux := http.NewServeMux()
	RegisterMetrics(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "accounting_store_added_block_count")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
