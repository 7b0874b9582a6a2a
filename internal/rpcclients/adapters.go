// Package rpcclients adapts the five external gRPC services (indexer,
// linear combiner, trust-matrix, trust-vector, compute) into
// Go-idiomatic, fully-drained calls that internal/scoredomain can use
// without touching streaming plumbing directly. Each call here is a
// single-shot unary or server-streaming round trip; no retries, per
// spec.md §4.3 — a failed call surfaces to the caller as a transient
// RPC error and the tick driver decides what to do with it.
package rpcclients

import (
	"context"
	"fmt"
	"io"

	"github.com/ocx/trustgraph/internal/rpcclients/pb"
)

// GetHistoricData drains one GetHistoricData stream into a slice. The
// 100x100 (x0=0,y0=0,x1=100,y1=100) window used by the caller is a
// carried-over cap from the original implementation — see DESIGN.md.
func GetHistoricData(ctx context.Context, lc pb.LinearCombinerClient, domain uint32, form int32, x0, y0, x1, y1 uint32) ([]*pb.LtHistoryObject, error) {
	stream, err := lc.GetHistoricData(ctx, &pb.LtHistoryBatch{Domain: domain, Form: form, X0: x0, Y0: y0, X1: x1, Y1: y1})
	if err != nil {
		return nil, fmt.Errorf("rpcclients: GetHistoricData: %w", err)
	}
	var out []*pb.LtHistoryObject
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rpcclients: GetHistoricData recv: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// GetDidMapping pages through GetDidMapping starting at start, 100 at a
// time, until a page comes back empty. Mirrors the original's
// fetch_did_mapping loop.
func GetDidMapping(ctx context.Context, lc pb.LinearCombinerClient, start uint32) ([]*pb.DidMapping, error) {
	var all []*pb.DidMapping
	more := true
	for more {
		stream, err := lc.GetDidMapping(ctx, &pb.MappingQuery{Start: start, Size: 100})
		if err != nil {
			return nil, fmt.Errorf("rpcclients: GetDidMapping: %w", err)
		}
		more = false
		for {
			msg, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("rpcclients: GetDidMapping recv: %w", err)
			}
			all = append(all, msg)
			start = msg.ID + 1
			more = true
		}
	}
	return all, nil
}

// Subscribe issues one indexer Subscribe call and drains it fully.
func Subscribe(ctx context.Context, idx pb.IndexerClient, schemaID string, offset uint32) ([]*pb.IndexerEvent, error) {
	stream, err := idx.Subscribe(ctx, &pb.Query{SchemaID: []string{schemaID}, Offset: offset, Count: 1_000_000})
	if err != nil {
		return nil, fmt.Errorf("rpcclients: Subscribe: %w", err)
	}
	var out []*pb.IndexerEvent
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rpcclients: Subscribe recv: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// UploadLocalTrust pushes a batch of local-trust entries into the
// compute engine's trust-matrix store at timestamp.
func UploadLocalTrust(ctx context.Context, tm pb.TrustMatrixClient, ltID string, timestamp uint64, entries []pb.TrustMatrixEntry) error {
	if err := tm.Update(ctx, ltID, timestamp, entries); err != nil {
		return fmt.Errorf("rpcclients: UploadLocalTrust: %w", err)
	}
	return nil
}

// CopyVector flushes `to` and seeds it with `from`'s current contents,
// the "tv.flush(gt); tv.update(gt, ts, entries_from(pt))" step of §4.2.3.
func CopyVector(ctx context.Context, tv pb.TrustVectorClient, from, to string) error {
	ts, entries, err := tv.Get(ctx, from)
	if err != nil {
		return fmt.Errorf("rpcclients: CopyVector get: %w", err)
	}
	if err := tv.Flush(ctx, to); err != nil {
		return fmt.Errorf("rpcclients: CopyVector flush: %w", err)
	}
	if err := tv.Update(ctx, to, ts, entries); err != nil {
		return fmt.Errorf("rpcclients: CopyVector update: %w", err)
	}
	return nil
}

// RunBasicCompute seeds gtID from ptID and invokes the engine's
// basic_compute, per §4.2.3 steps 1-2.
func RunBasicCompute(ctx context.Context, tv pb.TrustVectorClient, compute pb.ComputeClient, ltID, ptID, gtID string, alpha *float64) error {
	if err := CopyVector(ctx, tv, ptID, gtID); err != nil {
		return err
	}
	err := compute.BasicCompute(ctx, pb.ComputeParams{
		LocalTrustID:  ltID,
		PreTrustID:    ptID,
		GlobalTrustID: gtID,
		Alpha:         alpha,
	})
	if err != nil {
		return fmt.Errorf("rpcclients: BasicCompute: %w", err)
	}
	return nil
}

// FetchGlobalTrust reads gtID's entries back out, projecting DIDs to
// peer IDs via didToID and dropping anything not in that mapping
// (§4.2.3 step 3).
func FetchGlobalTrust(ctx context.Context, tv pb.TrustVectorClient, gtID string, didToID map[string]uint32) (map[uint32]float64, error) {
	_, entries, err := tv.Get(ctx, gtID)
	if err != nil {
		return nil, fmt.Errorf("rpcclients: FetchGlobalTrust: %w", err)
	}
	gt := make(map[uint32]float64, len(entries))
	for _, e := range entries {
		if id, ok := didToID[e.DID]; ok {
			gt[id] = e.Value
		}
	}
	return gt, nil
}
