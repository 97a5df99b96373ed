package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(deposits.WithLabelValues("already_credited"))
	RecordDeposit("already_credited")
	assert.Equal(t, before+1, testutil.ToFloat64(deposits.WithLabelValues("already_credited")))

	before = testutil.ToFloat64(transferLogFailures)
	RecordTransferLogFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(transferLogFailures))

	SetPot("gold", 250_000_000)
	assert.Equal(t, float64(250_000_000), testutil.ToFloat64(pots.WithLabelValues("gold")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordWithdraw("ok")
	ObserveLedgerCall("transfer", "ok", time.Now())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "custody_withdraw_requests_total")
	assert.Contains(t, string(body), "custody_ledger_call_duration_seconds")
}
