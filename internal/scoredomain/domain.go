// Package scoredomain implements the score computer's per-domain state
// machine: merging the local-trust and snap-status update streams,
// triggering EigenTrust recomputation on interval boundaries, and
// publishing the resulting credential bundle. Grounded on the Domain/
// Main types and run_once/fetch_*/publish_scores methods of the
// original snap-score-computer implementation.
package scoredomain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ocx/trustgraph/internal/bundle"
	"github.com/ocx/trustgraph/internal/metrics"
	"github.com/ocx/trustgraph/internal/rpcclients/pb"
	"github.com/ocx/trustgraph/pkg/trustvector"
)

// heartbeatOffsetMs is the fixed look-ahead used to force a later tick
// across the next interval boundary even if no further events arrive.
// The original hard-codes this as 600000 regardless of the --interval
// flag's value; preserved verbatim here (see DESIGN.md).
const heartbeatOffsetMs = 600000

// ScorePair is a snap's aggregated (value, confidence) pair.
type ScorePair struct {
	Value      float64
	Confidence float64
}

// Domain holds one domain's configuration and merge-loop state.
type Domain struct {
	ID           uint32
	LtID         string
	PtID         string
	GtID         string
	StatusSchema string

	localTrustUpdates map[uint64]trustvector.Matrix
	snapStatusUpdates map[uint64]map[string]map[string]float64

	peerDIDToID map[string]uint32
	peerIDToDID map[uint32]string

	ltFetchTsForm1 uint64
	ltFetchTsForm0 uint64
	ssFetchOffset  uint32
	ssUpdateTs     uint64
	lastUpdateTs   uint64
	lastComputeTs  uint64

	gt trustvector.Vector

	snapStatuses map[string]map[string]float64
	snapScores   map[string]ScorePair

	log *slog.Logger
}

// New constructs a Domain in its zero state.
func New(id uint32, ltID, ptID, gtID, statusSchema string, log *slog.Logger) *Domain {
	return &Domain{
		ID:                id,
		LtID:              ltID,
		PtID:              ptID,
		GtID:              gtID,
		StatusSchema:      statusSchema,
		localTrustUpdates: make(map[uint64]trustvector.Matrix),
		snapStatusUpdates: make(map[uint64]map[string]map[string]float64),
		peerDIDToID:       make(map[string]uint32),
		peerIDToDID:       make(map[uint32]string),
		gt:                make(trustvector.Vector),
		snapStatuses:      make(map[string]map[string]float64),
		snapScores:        make(map[string]ScorePair),
		log:               log,
	}
}

// Clients bundles the five external gRPC clients RunOnce needs.
type Clients struct {
	Indexer        pb.IndexerClient
	LinearCombiner pb.LinearCombinerClient
	TrustMatrix    pb.TrustMatrixClient
	TrustVector    pb.TrustVectorClient
	Compute        pb.ComputeClient
}

// RunConfig carries the per-tick parameters shared across all domains.
type RunConfig struct {
	Interval uint64
	Alpha    *float64
	IssuerID string
	Uploader *bundle.Uploader
	Metrics  *metrics.Metrics
}

// InitEigenTrust seeds the domain's lt/pt/gt handles, creating new ones
// where the domain was configured without one, mirroring Main::init_et.
func (d *Domain) InitEigenTrust(ctx context.Context, tm pb.TrustMatrixClient, tv pb.TrustVectorClient) error {
	if d.LtID == "" {
		id, err := tm.Create(ctx)
		if err != nil {
			return fmt.Errorf("scoredomain: create local trust: %w", err)
		}
		d.LtID = id
		d.log.Info("created local trust", "id", id, "domain", d.ID)
	} else {
		if err := tm.Flush(ctx, d.LtID); err != nil {
			return fmt.Errorf("scoredomain: flush local trust: %w", err)
		}
		d.log.Info("flushed local trust", "id", d.LtID, "domain", d.ID)
	}
	if d.PtID == "" {
		id, err := tv.Create(ctx)
		if err != nil {
			return fmt.Errorf("scoredomain: create pre-trust: %w", err)
		}
		d.PtID = id
		d.log.Info("created pre-trust", "id", id, "domain", d.ID)
	} else {
		d.log.Info("using existing pre-trust", "id", d.PtID, "domain", d.ID)
	}
	if d.GtID == "" {
		id, err := tv.Create(ctx)
		if err != nil {
			return fmt.Errorf("scoredomain: create global trust: %w", err)
		}
		d.GtID = id
		d.log.Info("created global trust", "id", id, "domain", d.ID)
	} else {
		d.log.Info("using existing global trust (as the initial vector)", "id", d.GtID, "domain", d.ID)
	}
	return nil
}
