// Package lcserver implements the linear combiner's four RPCs
// (SyncTransformer, SyncCoreComputer, GetDidMapping, GetHistoricData)
// over an internal/lcstore.Store. It exposes plain Go methods rather
// than a generated grpc.ServiceServer — wiring this to an actual
// protoc-generated server is out of scope (spec.md §1), the same
// boundary internal/rpcclients/pb draws on the client side.
package lcserver

import (
	"fmt"
	"log/slog"

	"github.com/ocx/trustgraph/internal/domainid"
	"github.com/ocx/trustgraph/internal/lcstore"
	"github.com/ocx/trustgraph/internal/metrics"
)

// Server wraps a lcstore.Store with the application logic of the four
// linear combiner RPCs.
type Server struct {
	store *lcstore.Store
	log   *slog.Logger
	mx    *metrics.Metrics
}

// New constructs a Server over store.
func New(store *lcstore.Store, log *slog.Logger, mx *metrics.Metrics) *Server {
	return &Server{store: store, log: log, mx: mx}
}

// TermIn is one inbound term from a SyncTransformer stream, in wire form
// (DID strings, not yet resolved to peer IDs).
type TermIn struct {
	From, To  string
	Form      lcstore.Form
	Weight    uint32
	Timestamp uint64
}

// SyncTransformer applies a batch of terms drawn from one client stream,
// in the order received. Each term resolves its endpoints to stable peer
// IDs (assigning new ones as needed) and accumulates weight into both
// column families. Mirrors the original's per-message apply loop.
func (s *Server) SyncTransformer(terms []TermIn) error {
	for _, t := range terms {
		from, err := domainid.Parse(t.From)
		if err != nil {
			return fmt.Errorf("lcserver: sync_transformer: parse from %q: %w", t.From, err)
		}
		to, err := domainid.Parse(t.To)
		if err != nil {
			return fmt.Errorf("lcserver: sync_transformer: parse to %q: %w", t.To, err)
		}
		_, _, weight, err := s.store.ApplyTerm(lcstore.Term{
			FromDIDKey: from.Key(),
			ToDIDKey:   to.Key(),
			Form:       t.Form,
			Weight:     t.Weight,
			Timestamp:  t.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("lcserver: sync_transformer: apply term: %w", err)
		}
		if s.mx != nil {
			s.mx.TermsApplied.WithLabelValues(formLabel(t.Form)).Inc()
		}
		s.log.Debug("applied term", "from", t.From, "to", t.To, "form", t.Form, "weight", weight)
	}
	return nil
}

func formLabel(f lcstore.Form) string {
	if f == lcstore.FormPositive {
		return "positive"
	}
	return "negative"
}

// SyncCoreComputer is reserved for future compute-engine push
// notifications. The original implementation's handler is a stub that
// emits four zero-valued acks and never reads request state; this repo
// preserves that contract rather than inventing semantics the spec
// doesn't describe (see the internal/lcserver entry in DESIGN.md).
func (s *Server) SyncCoreComputer() []lcstore.Term {
	zero := lcstore.Term{}
	return []lcstore.Term{zero, zero, zero, zero}
}

// DidMappingPage is one page of the did<->id mapping, in the wire shape
// GetDidMapping streams out (hex-encoded DIDs).
type DidMappingPage struct {
	ID     uint32
	DIDHex string
}

// GetDidMapping returns up to size mappings starting at start, ascending
// by peer ID.
func (s *Server) GetDidMapping(start, size uint32) ([]DidMappingPage, error) {
	rows, err := s.store.DidMappings(start, size)
	if err != nil {
		return nil, fmt.Errorf("lcserver: get_did_mapping: %w", err)
	}
	out := make([]DidMappingPage, len(rows))
	for i, r := range rows {
		did, err := domainid.Parse(string(r.DIDKey))
		if err != nil {
			return nil, fmt.Errorf("lcserver: get_did_mapping: stored key is not a DID: %w", err)
		}
		out[i] = DidMappingPage{ID: r.ID, DIDHex: did.Hex()}
	}
	return out, nil
}

// HistoricPage is one row GetHistoricData streams out.
type HistoricPage struct {
	Truster, Trustee uint32
	Value            uint32
	Timestamp        uint64
}

// GetHistoricData returns pending update-log rows in the given window
// and form. Callers MUST call Ack once the rows have been durably
// handed off to the stream's consumer — acking before that point would
// lose updates on a mid-stream failure.
func (s *Server) GetHistoricData(form lcstore.Form, x0, y0, x1, y1 uint32) ([]HistoricPage, func() error, error) {
	entries, err := s.store.HistoricData(form, x0, y0, x1, y1)
	if err != nil {
		return nil, nil, fmt.Errorf("lcserver: get_historic_data: %w", err)
	}
	out := make([]HistoricPage, len(entries))
	for i, e := range entries {
		out[i] = HistoricPage{Truster: e.Truster, Trustee: e.Trustee, Value: e.Value, Timestamp: e.Timestamp}
	}
	ack := func() error { return s.store.Ack(entries) }
	return out, ack, nil
}
