package observability

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStakingMetricsRecordOutcomes(t *testing.T) {
	m := Staking()
	before := testutil.ToFloat64(m.operations.WithLabelValues("stake", "validation"))
	m.Observe("stake", "validation", time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.operations.WithLabelValues("stake", "validation")))

	conflicts := testutil.ToFloat64(m.conflicts.WithLabelValues("claim_rewards"))
	m.RecordConflict("claim_rewards")
	require.Equal(t, conflicts+1, testutil.ToFloat64(m.conflicts.WithLabelValues("claim_rewards")))

	m.SetTotals(10, 20, 3)
	require.Equal(t, float64(10), testutil.ToFloat64(m.staked))
	require.Equal(t, float64(20), testutil.ToFloat64(m.escrow))
	require.Equal(t, float64(3), testutil.ToFloat64(m.users))
}

func TestModuleMetricsCountsErrors(t *testing.T) {
	m := ModuleMetrics()
	before := testutil.ToFloat64(m.errors.WithLabelValues("staking", "stake_stake", "409"))
	m.Observe("staking", "stake_stake", http.StatusConflict, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.errors.WithLabelValues("staking", "stake_stake", "409")))
}

func TestEventMetricsNormalizeType(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.dropped.WithLabelValues("unknown"))
	m.RecordDropped("  ")
	require.Equal(t, before+1, testutil.ToFloat64(m.dropped.WithLabelValues("unknown")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var s *StakingMetrics
	s.Observe("stake", "ok", time.Second)
	s.RecordConflict("stake")
	s.SetTotals(1, 2, 3)
}
