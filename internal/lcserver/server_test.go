package lcserver

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/trustgraph/internal/lcstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := lcstore.Open(filepath.Join(t.TempDir(), "lc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, log, nil)
}

func TestSyncTransformerAssignsPeerIDsAndAccumulates(t *testing.T) {
	s := newTestServer(t)
	err := s.SyncTransformer([]TermIn{
		{From: "did:example:A", To: "did:example:B", Form: lcstore.FormPositive, Weight: 5, Timestamp: 1000},
		{From: "did:example:A", To: "did:example:B", Form: lcstore.FormPositive, Weight: 3, Timestamp: 2000},
	})
	require.NoError(t, err)

	pages, err := s.GetDidMapping(0, 10)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	rows, ack, err := s.GetHistoricData(lcstore.FormPositive, 0, 0, 100, 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint32(8), rows[0].Value)
	require.NoError(t, ack())

	rows, _, err = s.GetHistoricData(lcstore.FormPositive, 0, 0, 100, 100)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSyncTransformerRejectsMalformedDID(t *testing.T) {
	s := newTestServer(t)
	err := s.SyncTransformer([]TermIn{
		{From: "not-a-did", To: "did:example:B", Form: lcstore.FormPositive, Weight: 1, Timestamp: 1},
	})
	assert.Error(t, err)
}

func TestSyncCoreComputerReturnsFourZeroAcks(t *testing.T) {
	s := newTestServer(t)
	acks := s.SyncCoreComputer()
	require.Len(t, acks, 4)
	for _, a := range acks {
		assert.Equal(t, uint32(0), a.Weight)
	}
}
