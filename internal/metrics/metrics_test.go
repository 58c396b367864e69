package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(SessionsStarted)
	SessionsStarted.Inc()
	after := testutil.ToFloat64(SessionsStarted)
	assert.Equal(t, before+1, after)
}

func TestPhaseTransitionsLabeled(t *testing.T) {
	PhaseTransitions.WithLabelValues("AwaitingKeys").Inc()
	count := testutil.ToFloat64(PhaseTransitions.WithLabelValues("AwaitingKeys"))
	assert.GreaterOrEqual(t, count, float64(1))
}

func TestHandlerServesRegistry(t *testing.T) {
	h := Handler()
	assert.NotNil(t, h)
}
