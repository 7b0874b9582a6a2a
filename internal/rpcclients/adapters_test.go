package rpcclients

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/ocx/trustgraph/internal/rpcclients/pb"
)

// fakeHistoricStream replays a fixed slice of LtHistoryObject then io.EOF.
type fakeHistoricStream struct {
	grpc.ClientStream
	items []*pb.LtHistoryObject
	pos   int
}

func (f *fakeHistoricStream) Recv() (*pb.LtHistoryObject, error) {
	if f.pos >= len(f.items) {
		return nil, io.EOF
	}
	item := f.items[f.pos]
	f.pos++
	return item, nil
}

type fakeLC struct {
	pb.LinearCombinerClient
	historic []*pb.LtHistoryObject
	pages    [][]*pb.DidMapping
	pageIdx  int
}

func (f *fakeLC) GetHistoricData(ctx context.Context, in *pb.LtHistoryBatch, opts ...grpc.CallOption) (pb.LinearCombiner_GetHistoricDataClient, error) {
	return &fakeHistoricStream{items: f.historic}, nil
}

type fakeMappingStream struct {
	grpc.ClientStream
	items []*pb.DidMapping
	pos   int
}

func (f *fakeMappingStream) Recv() (*pb.DidMapping, error) {
	if f.pos >= len(f.items) {
		return nil, io.EOF
	}
	item := f.items[f.pos]
	f.pos++
	return item, nil
}

func (f *fakeLC) GetDidMapping(ctx context.Context, in *pb.MappingQuery, opts ...grpc.CallOption) (pb.LinearCombiner_GetDidMappingClient, error) {
	if f.pageIdx >= len(f.pages) {
		return &fakeMappingStream{}, nil
	}
	page := f.pages[f.pageIdx]
	f.pageIdx++
	return &fakeMappingStream{items: page}, nil
}

func TestGetHistoricDataDrainsStream(t *testing.T) {
	lc := &fakeLC{historic: []*pb.LtHistoryObject{
		{X: 1, Y: 2, Value: 10, Timestamp: 100},
		{X: 3, Y: 4, Value: 20, Timestamp: 200},
	}}
	out, err := GetHistoricData(context.Background(), lc, 2, int32(1), 0, 0, 100, 100)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, uint32(20), out[1].Value)
}

func TestGetDidMappingPagesUntilEmpty(t *testing.T) {
	lc := &fakeLC{pages: [][]*pb.DidMapping{
		{{ID: 0, DIDHex: "aa"}, {ID: 1, DIDHex: "bb"}},
		{{ID: 2, DIDHex: "cc"}},
		{},
	}}
	out, err := GetDidMapping(context.Background(), lc, 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, uint32(2), out[2].ID)
}

type fakeIndexer struct {
	pb.IndexerClient
	events []*pb.IndexerEvent
}

type fakeIndexerStream struct {
	grpc.ClientStream
	items []*pb.IndexerEvent
	pos   int
}

func (f *fakeIndexerStream) Recv() (*pb.IndexerEvent, error) {
	if f.pos >= len(f.items) {
		return nil, io.EOF
	}
	item := f.items[f.pos]
	f.pos++
	return item, nil
}

func (f *fakeIndexer) Subscribe(ctx context.Context, in *pb.Query, opts ...grpc.CallOption) (pb.Indexer_SubscribeClient, error) {
	return &fakeIndexerStream{items: f.events}, nil
}

func TestSubscribeDrainsAllEvents(t *testing.T) {
	idx := &fakeIndexer{events: []*pb.IndexerEvent{
		{ID: 1, SchemaID: 4, SchemaValue: "Endorsed", Timestamp: 10},
	}}
	out, err := Subscribe(context.Background(), idx, "2=4", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Endorsed", out[0].SchemaValue)
}

type fakeTrustVector struct {
	pb.TrustVectorClient
	getTS      uint64
	getEntries []pb.TrustVectorEntry
	flushed    []string
	updated    map[string][]pb.TrustVectorEntry
}

func (f *fakeTrustVector) Get(ctx context.Context, id string, opts ...grpc.CallOption) (uint64, []pb.TrustVectorEntry, error) {
	return f.getTS, f.getEntries, nil
}

func (f *fakeTrustVector) Flush(ctx context.Context, id string, opts ...grpc.CallOption) error {
	f.flushed = append(f.flushed, id)
	return nil
}

func (f *fakeTrustVector) Update(ctx context.Context, id string, timestamp uint64, entries []pb.TrustVectorEntry, opts ...grpc.CallOption) error {
	if f.updated == nil {
		f.updated = make(map[string][]pb.TrustVectorEntry)
	}
	f.updated[id] = entries
	return nil
}

func TestCopyVectorFlushesThenSeedsDestination(t *testing.T) {
	tv := &fakeTrustVector{
		getTS:      123,
		getEntries: []pb.TrustVectorEntry{{DID: "did:example:A", Value: 0.5}},
	}
	require.NoError(t, CopyVector(context.Background(), tv, "pt", "gt"))
	assert.Equal(t, []string{"gt"}, tv.flushed)
	require.Contains(t, tv.updated, "gt")
	assert.Equal(t, uint64(123), tv.getTS)
	assert.Equal(t, "did:example:A", tv.updated["gt"][0].DID)
}

type fakeCompute struct {
	pb.ComputeClient
	called pb.ComputeParams
}

func (f *fakeCompute) BasicCompute(ctx context.Context, params pb.ComputeParams, opts ...grpc.CallOption) error {
	f.called = params
	return nil
}

func TestRunBasicComputeSeedsThenInvokesEngine(t *testing.T) {
	tv := &fakeTrustVector{getEntries: []pb.TrustVectorEntry{{DID: "did:example:A", Value: 1}}}
	compute := &fakeCompute{}
	alpha := 0.1
	require.NoError(t, RunBasicCompute(context.Background(), tv, compute, "lt", "pt", "gt", &alpha))
	assert.Equal(t, []string{"gt"}, tv.flushed)
	assert.Equal(t, "lt", compute.called.LocalTrustID)
	assert.Equal(t, "gt", compute.called.GlobalTrustID)
	require.NotNil(t, compute.called.Alpha)
	assert.Equal(t, 0.1, *compute.called.Alpha)
}

func TestFetchGlobalTrustFiltersUnknownDIDs(t *testing.T) {
	tv := &fakeTrustVector{getEntries: []pb.TrustVectorEntry{
		{DID: "did:example:A", Value: 0.7},
		{DID: "did:example:unknown", Value: 0.9},
	}}
	didToID := map[string]uint32{"did:example:A": 5}
	gt, err := FetchGlobalTrust(context.Background(), tv, "gt", didToID)
	require.NoError(t, err)
	require.Len(t, gt, 1)
	assert.Equal(t, 0.7, gt[5])
}

type fakeTrustMatrix struct {
	pb.TrustMatrixClient
	updatedID string
	updatedTS uint64
	entries   []pb.TrustMatrixEntry
}

func (f *fakeTrustMatrix) Update(ctx context.Context, id string, timestamp uint64, entries []pb.TrustMatrixEntry, opts ...grpc.CallOption) error {
	f.updatedID = id
	f.updatedTS = timestamp
	f.entries = entries
	return nil
}

func TestUploadLocalTrustForwardsEntries(t *testing.T) {
	tm := &fakeTrustMatrix{}
	entries := []pb.TrustMatrixEntry{{Truster: "did:example:A", Trustee: "did:example:B", Value: 0.3}}
	require.NoError(t, UploadLocalTrust(context.Background(), tm, "lt", 9999, entries))
	assert.Equal(t, "lt", tm.updatedID)
	assert.Equal(t, uint64(9999), tm.updatedTS)
	assert.Equal(t, entries, tm.entries)
}
