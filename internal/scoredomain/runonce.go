package scoredomain

import (
	"context"
	"fmt"

	"github.com/ocx/trustgraph/pkg/trustvector"
)

// pendingKind distinguishes the two streams merged by RunOnce.
type pendingKind int

const (
	pendingLocalTrust pendingKind = iota
	pendingSnapStatuses
)

type pendingUpdate struct {
	timestamp uint64
	kind      pendingKind
	lt        trustvector.Matrix
	ss        map[string]map[string]float64
}

func popMinLT(m map[uint64]trustvector.Matrix) (pendingUpdate, bool) {
	if len(m) == 0 {
		return pendingUpdate{}, false
	}
	var min uint64
	first := true
	for k := range m {
		if first || k < min {
			min, first = k, false
		}
	}
	v := m[min]
	delete(m, min)
	return pendingUpdate{timestamp: min, kind: pendingLocalTrust, lt: v}, true
}

func popMinSS(m map[uint64]map[string]map[string]float64) (pendingUpdate, bool) {
	if len(m) == 0 {
		return pendingUpdate{}, false
	}
	var min uint64
	first := true
	for k := range m {
		if first || k < min {
			min, first = k, false
		}
	}
	v := m[min]
	delete(m, min)
	return pendingUpdate{timestamp: min, kind: pendingSnapStatuses, ss: v}, true
}

// RunOnce fetches fresh local-trust and snap-status updates, then
// merges them with whatever was left pending from prior ticks in
// timestamp order (ties favor local trust), applying each in turn and
// triggering a compute-and-publish cycle whenever an update crosses an
// interval boundary. Mirrors Domain::run_once.
func (d *Domain) RunOnce(ctx context.Context, clients Clients, cfg RunConfig) error {
	ltUpdates := cloneMatrixMap(d.localTrustUpdates)
	if err := fetchLocalTrust(ctx, clients.LinearCombiner, d.ID, &d.ltFetchTsForm1, &d.ltFetchTsForm0, ltUpdates); err != nil {
		return err
	}
	ssUpdates := cloneSSMap(d.snapStatusUpdates)
	if d.StatusSchema != "" {
		if err := d.fetchSnapStatuses(ctx, clients.Indexer, &d.ssFetchOffset, d.StatusSchema, ssUpdates); err != nil {
			return err
		}
	}

	nextLT, ltOk := popMinLT(ltUpdates)
	nextSS, ssOk := popMinSS(ssUpdates)

	for ltOk || ssOk {
		var consumeLT bool
		switch {
		case !ltOk:
			consumeLT = false
		case !ssOk:
			consumeLT = true
		default:
			consumeLT = nextLT.timestamp <= nextSS.timestamp
		}
		var current pendingUpdate
		if consumeLT {
			current = nextLT
		} else {
			current = nextSS
		}
		ts := current.timestamp

		d.gt = make(trustvector.Vector)
		if ts >= d.lastUpdateTs {
			d.lastUpdateTs = ts
			tsWindow := (ts / cfg.Interval) * cfg.Interval
			if d.lastComputeTs < tsWindow {
				d.lastComputeTs = tsWindow
				didToID, err := d.fetchDidMapping(ctx, clients.LinearCombiner)
				if err != nil {
					return d.reinsertAndFail(ltUpdates, ssUpdates, nextLT, nextSS, ltOk, ssOk, err)
				}
				d.peerDIDToID = didToID
				d.peerIDToDID = invertDidMapping(didToID)

				gt, err := runEigenTrust(ctx, clients.TrustVector, clients.Compute, d.LtID, d.PtID, d.GtID, didToID, cfg.Alpha)
				if err != nil {
					d.log.Error("compute failed, snap scores will be based on old peer scores", "err", err, "domain", d.ID)
					d.gt = make(trustvector.Vector)
				} else {
					d.gt = gt
				}
				if err := d.publishScores(ctx, tsWindow, cfg.IssuerID, cfg.Uploader, cfg.Metrics); err != nil {
					return d.reinsertAndFail(ltUpdates, ssUpdates, nextLT, nextSS, ltOk, ssOk, err)
				}
			}
			if consumeLT {
				if len(current.lt) > 0 {
					if err := d.uploadLT(ctx, clients.TrustMatrix, ts, current.lt); err != nil {
						return d.reinsertAndFail(ltUpdates, ssUpdates, nextLT, nextSS, ltOk, ssOk, err)
					}
				}
			} else {
				for snapID, opinions := range current.ss {
					target, ok := d.snapStatuses[snapID]
					if !ok {
						target = make(map[string]float64)
						d.snapStatuses[snapID] = target
					}
					for issuer, value := range opinions {
						target[issuer] = value
					}
				}
				d.ssUpdateTs = ts
			}
		}

		if consumeLT {
			nextLT, ltOk = popMinLT(ltUpdates)
		} else {
			nextSS, ssOk = popMinSS(ssUpdates)
		}
	}

	d.localTrustUpdates = ltUpdates
	d.snapStatusUpdates = ssUpdates
	return nil
}

// reinsertAndFail restores whatever the merge loop had not yet
// committed before surfacing err, so the next tick's RunOnce sees every
// update again. Both nextLT and nextSS are, at the point any call site
// reaches this function, peeked-but-not-yet-durably-applied heads
// already removed from their source maps — that includes the head just
// consumed this iteration (current), not only the other side's peeked
// head — so both must go back regardless of which one was consumed.
// Mirrors the original's "leave self.* untouched on error" behavior by
// putting the full pending set back together. Fixes a data-loss bug
// where the consumed-but-unapplied head was dropped on failure.
func (d *Domain) reinsertAndFail(ltUpdates map[uint64]trustvector.Matrix, ssUpdates map[uint64]map[string]map[string]float64, nextLT, nextSS pendingUpdate, ltOk, ssOk bool, cause error) error {
	if ltOk {
		ltUpdates[nextLT.timestamp] = nextLT.lt
	}
	if ssOk {
		ssUpdates[nextSS.timestamp] = nextSS.ss
	}
	d.localTrustUpdates = ltUpdates
	d.snapStatusUpdates = ssUpdates
	return fmt.Errorf("scoredomain: run once: %w", cause)
}

func cloneMatrixMap(m map[uint64]trustvector.Matrix) map[uint64]trustvector.Matrix {
	out := make(map[uint64]trustvector.Matrix, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSSMap(m map[uint64]map[string]map[string]float64) map[uint64]map[string]map[string]float64 {
	out := make(map[uint64]map[string]map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func invertDidMapping(didToID map[string]uint32) map[uint32]string {
	out := make(map[uint32]string, len(didToID))
	for did, id := range didToID {
		out[id] = did
	}
	return out
}

