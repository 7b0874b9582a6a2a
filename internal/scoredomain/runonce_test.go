package scoredomain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/trustgraph/pkg/trustvector"
)

// TestReinsertAndFailRestoresBothConsumedAndPeekedHeads guards against a
// data-loss regression: a failure mid-tick must put back the head that
// was drawn out of the pending map this iteration (the one RunOnce was
// about to apply) as well as the other side's still-peeked head, so the
// next tick sees every update again instead of silently dropping one.
func TestReinsertAndFailRestoresBothConsumedAndPeekedHeads(t *testing.T) {
	d := New(2, "lt", "pt", "gt", "", discardLogger())

	ltUpdates := map[uint64]trustvector.Matrix{}
	ssUpdates := map[uint64]map[string]map[string]float64{}

	// nextLT plays the role of the head RunOnce just consumed this
	// iteration (drawn via popMinLT, not yet applied when the error hit);
	// nextSS plays the still-peeked, never-consumed other side.
	nextLT := pendingUpdate{timestamp: 1000, kind: pendingLocalTrust, lt: trustvector.Matrix{{Truster: 0, Trustee: 1}: 5.0}}
	nextSS := pendingUpdate{timestamp: 2000, kind: pendingSnapStatuses, ss: map[string]map[string]float64{"s1": {"did:example:A": 1.0}}}

	err := d.reinsertAndFail(ltUpdates, ssUpdates, nextLT, nextSS, true, true, errors.New("boom"))
	require.Error(t, err)

	require.Contains(t, ltUpdates, uint64(1000))
	assert.Equal(t, 5.0, ltUpdates[1000][trustvector.Edge{Truster: 0, Trustee: 1}])

	require.Contains(t, ssUpdates, uint64(2000))
	assert.Equal(t, 1.0, ssUpdates[2000]["s1"]["did:example:A"])

	assert.Equal(t, ltUpdates, d.localTrustUpdates)
	assert.Equal(t, ssUpdates, d.snapStatusUpdates)
}

// TestReinsertAndFailSkipsExhaustedSide confirms no spurious zero-value
// entry is inserted for a side that was already fully drained (ok=false).
func TestReinsertAndFailSkipsExhaustedSide(t *testing.T) {
	d := New(2, "lt", "pt", "gt", "", discardLogger())

	ltUpdates := map[uint64]trustvector.Matrix{}
	ssUpdates := map[uint64]map[string]map[string]float64{}

	nextLT := pendingUpdate{timestamp: 1000, kind: pendingLocalTrust, lt: trustvector.Matrix{}}

	err := d.reinsertAndFail(ltUpdates, ssUpdates, nextLT, pendingUpdate{}, true, false, errors.New("boom"))
	require.Error(t, err)

	assert.Contains(t, ltUpdates, uint64(1000))
	assert.Empty(t, ssUpdates)
}
