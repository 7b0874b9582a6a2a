package scoredomain

import (
	"context"
	"fmt"

	"github.com/ocx/trustgraph/internal/credential"
	"github.com/ocx/trustgraph/internal/domainid"
	"github.com/ocx/trustgraph/internal/rpcclients"
	"github.com/ocx/trustgraph/internal/rpcclients/pb"
	"github.com/ocx/trustgraph/pkg/trustvector"
)

// fetchLocalTrust pulls both trust-matrix forms (positive weighted +1,
// negative weighted -1) from the linear combiner, accumulating deltas
// into updates keyed by write timestamp, and advances the two
// high-watermarks in place. The 0,0,100,100 window is a carried-over
// cap from the original implementation (see DESIGN.md); it is not a
// pagination loop like fetchDidMapping and fetchSnapStatuses.
func fetchLocalTrust(ctx context.Context, lc pb.LinearCombinerClient, domain uint32, form1Ts, form0Ts *uint64, updates map[uint64]trustvector.Matrix) error {
	type formSpec struct {
		form   int32
		weight float64
		ts     *uint64
	}
	specs := []formSpec{{form: 1, weight: 1.0, ts: form1Ts}, {form: 0, weight: -1.0, ts: form0Ts}}

	var lastTimestamp uint64
	sawAny := false
	for _, spec := range specs {
		entries, err := rpcclients.GetHistoricData(ctx, lc, domain, spec.form, 0, 0, 100, 100)
		if err != nil {
			return fmt.Errorf("scoredomain: fetch local trust form %d: %w", spec.form, err)
		}
		for _, e := range entries {
			if e.Timestamp < *spec.ts {
				continue
			}
			*spec.ts = e.Timestamp
			if !sawAny || e.Timestamp > lastTimestamp {
				lastTimestamp = e.Timestamp
				sawAny = true
			}
			batch, ok := updates[e.Timestamp]
			if !ok {
				batch = trustvector.Matrix{}
				updates[e.Timestamp] = batch
			}
			batch.Add(e.X, e.Y, float64(e.Value)*spec.weight)
		}
	}
	if sawAny {
		heartbeat := lastTimestamp + heartbeatOffsetMs
		if _, ok := updates[heartbeat]; !ok {
			updates[heartbeat] = trustvector.Matrix{}
		}
	}
	return nil
}

// fetchSnapStatuses drains the indexer subscription for schemaID
// starting at *offset until a page comes back empty, parsing each
// entry as a StatusCredential and accumulating per-snap, per-issuer
// opinions keyed by event timestamp.
func (d *Domain) fetchSnapStatuses(ctx context.Context, idx pb.IndexerClient, offset *uint32, schemaID string, updates map[uint64]map[string]map[string]float64) error {
	var lastTimestamp uint64
	sawAny := false
	more := true
	for more {
		events, err := rpcclients.Subscribe(ctx, idx, schemaID, *offset)
		if err != nil {
			return fmt.Errorf("scoredomain: fetch snap statuses: %w", err)
		}
		more = false
		for _, e := range events {
			more = true
			*offset = e.ID + 1
			if !sawAny || e.Timestamp > lastTimestamp {
				lastTimestamp = e.Timestamp
				sawAny = true
			}
			sc, opinion, err := credential.ParseStatusCredential([]byte(e.SchemaValue))
			if err != nil {
				d.log.Warn("cannot process entry", "err", err, "domain", d.ID)
				continue
			}
			tsMap, ok := updates[e.Timestamp]
			if !ok {
				tsMap = make(map[string]map[string]float64)
				updates[e.Timestamp] = tsMap
			}
			issuerMap, ok := tsMap[sc.CredentialSubject.ID]
			if !ok {
				issuerMap = make(map[string]float64)
				tsMap[sc.CredentialSubject.ID] = issuerMap
			}
			issuerMap[sc.Issuer] = float64(opinion)
		}
	}
	if sawAny {
		heartbeat := lastTimestamp + heartbeatOffsetMs
		if _, ok := updates[heartbeat]; !ok {
			updates[heartbeat] = make(map[string]map[string]float64)
		}
	}
	return nil
}

// fetchDidMapping re-reads the full did<->id mapping from the linear
// combiner, hex-decoding each DID. Entries with malformed hex or a
// non-DID payload are logged and skipped.
func (d *Domain) fetchDidMapping(ctx context.Context, lc pb.LinearCombinerClient) (map[string]uint32, error) {
	rows, err := rpcclients.GetDidMapping(ctx, lc, 0)
	if err != nil {
		return nil, fmt.Errorf("scoredomain: fetch did mapping: %w", err)
	}
	out := make(map[string]uint32, len(rows))
	for _, r := range rows {
		did, err := domainid.FromHex(r.DIDHex)
		if err != nil {
			d.log.Error("invalid hex DID encountered", "err", err, "id", r.ID)
			continue
		}
		out[did.String()] = r.ID
	}
	return out, nil
}
