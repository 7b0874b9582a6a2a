package lcstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lc.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssignOrGetPeerIDMonotonic(t *testing.T) {
	s := openTestStore(t)

	x, err := s.AssignOrGetPeerID([]byte("did:example:X"))
	require.NoError(t, err)
	y, err := s.AssignOrGetPeerID([]byte("did:example:Y"))
	require.NoError(t, err)
	xAgain, err := s.AssignOrGetPeerID([]byte("did:example:X"))
	require.NoError(t, err)
	z, err := s.AssignOrGetPeerID([]byte("did:example:Z"))
	require.NoError(t, err)

	assert.Equal(t, uint32(0), x)
	assert.Equal(t, uint32(1), y)
	assert.Equal(t, x, xAgain)
	assert.Equal(t, uint32(2), z)

	cp, err := s.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), cp)
}

func TestApplyTermAccumulatesWeight(t *testing.T) {
	s := openTestStore(t)

	_, _, w1, err := s.ApplyTerm(Term{
		FromDIDKey: []byte("did:example:A"), ToDIDKey: []byte("did:example:B"),
		Form: FormPositive, Weight: 5, Timestamp: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), w1)

	_, _, w2, err := s.ApplyTerm(Term{
		FromDIDKey: []byte("did:example:A"), ToDIDKey: []byte("did:example:B"),
		Form: FormPositive, Weight: 7, Timestamp: 2000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(12), w2)

	entries, err := s.HistoricData(FormPositive, 0, 0, 100, 100)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(12), entries[0].Value)
	assert.Equal(t, uint64(2000), entries[0].Timestamp)
}

func TestHistoricDataDeletedAfterAck(t *testing.T) {
	s := openTestStore(t)
	_, _, _, err := s.ApplyTerm(Term{
		FromDIDKey: []byte("did:example:A"), ToDIDKey: []byte("did:example:B"),
		Form: FormPositive, Weight: 1, Timestamp: 1,
	})
	require.NoError(t, err)

	entries, err := s.HistoricData(FormPositive, 0, 0, 100, 100)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.Ack(entries))

	entries, err = s.HistoricData(FormPositive, 0, 0, 100, 100)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDidMappingsAscendingAndPaged(t *testing.T) {
	s := openTestStore(t)
	dids := []string{"did:example:X", "did:example:Y", "did:example:Z"}
	for _, d := range dids {
		_, err := s.AssignOrGetPeerID([]byte(d))
		require.NoError(t, err)
	}

	page1, err := s.DidMappings(0, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, uint32(0), page1[0].ID)
	assert.Equal(t, uint32(1), page1[1].ID)

	page2, err := s.DidMappings(page1[len(page1)-1].ID+1, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, uint32(2), page2[0].ID)
}

func TestHistoricDataRangeFilter(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUpdate)
		if err := b.Put(MatrixKey(FormPositive, 5, 5), encodeUpdateValue(10, 1)); err != nil {
			return err
		}
		return b.Put(MatrixKey(FormPositive, 150, 150), encodeUpdateValue(20, 2))
	}))

	entries, err := s.HistoricData(FormPositive, 0, 0, 100, 100)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(5), entries[0].Truster)
}
