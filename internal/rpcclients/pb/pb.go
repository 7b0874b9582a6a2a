// Package pb holds the message and client-interface shapes for the five
// external gRPC services this system talks to (indexer, linear combiner,
// trust-matrix, trust-vector, compute). Raw gRPC transport and the actual
// protoc-generated stubs are out of scope for this repo (see spec.md §1);
// these types give internal/rpcclients something concrete to compile
// against, in the teacher's own "generated client, protobuf not yet
// compiled" idiom (internal/federation/handshake_client.go).
package pb

import (
	"context"

	"google.golang.org/grpc"
)

// ---- Indexer ----------------------------------------------------------

type Query struct {
	SourceAddress string
	SchemaID      []string
	Offset        uint32
	Count         uint32
}

type IndexerEvent struct {
	ID           uint32
	SchemaID     uint32
	SchemaValue  string
	Timestamp    uint64
}

type Indexer_SubscribeClient interface {
	Recv() (*IndexerEvent, error)
	grpc.ClientStream
}

type IndexerClient interface {
	Subscribe(ctx context.Context, in *Query, opts ...grpc.CallOption) (Indexer_SubscribeClient, error)
}

// NewIndexerClient constructs the indexer client. Wired up by protoc in
// production; connection plumbing lives outside this package's scope.
func NewIndexerClient(cc *grpc.ClientConn) IndexerClient { return &indexerClient{cc} }

type indexerClient struct{ cc *grpc.ClientConn }

func (c *indexerClient) Subscribe(ctx context.Context, in *Query, opts ...grpc.CallOption) (Indexer_SubscribeClient, error) {
	return nil, errNotGenerated
}

// ---- Linear Combiner ----------------------------------------------------

type TermObject struct {
	From      string
	To        string
	Weight    uint32
	Form      int32
	Timestamp uint64
}

type Void struct{}

type LtBatch struct{}

type LtObject struct {
	X, Y  uint32
	Value uint32
}

type MappingQuery struct {
	Start uint32
	Size  uint32
}

type DidMapping struct {
	ID     uint32
	DIDHex string
}

type LtHistoryBatch struct {
	Domain         uint32
	Form           int32
	X0, Y0, X1, Y1 uint32
}

type LtHistoryObject struct {
	X, Y      uint32
	Value     uint32
	Timestamp uint64
}

type LinearCombiner_SyncTransformerClient interface {
	Send(*TermObject) error
	CloseAndRecv() (*Void, error)
	grpc.ClientStream
}

type LinearCombiner_SyncCoreComputerClient interface {
	Recv() (*LtObject, error)
	grpc.ClientStream
}

type LinearCombiner_GetDidMappingClient interface {
	Recv() (*DidMapping, error)
	grpc.ClientStream
}

type LinearCombiner_GetHistoricDataClient interface {
	Recv() (*LtHistoryObject, error)
	grpc.ClientStream
}

type LinearCombinerClient interface {
	SyncTransformer(ctx context.Context, opts ...grpc.CallOption) (LinearCombiner_SyncTransformerClient, error)
	SyncCoreComputer(ctx context.Context, in *LtBatch, opts ...grpc.CallOption) (LinearCombiner_SyncCoreComputerClient, error)
	GetDidMapping(ctx context.Context, in *MappingQuery, opts ...grpc.CallOption) (LinearCombiner_GetDidMappingClient, error)
	GetHistoricData(ctx context.Context, in *LtHistoryBatch, opts ...grpc.CallOption) (LinearCombiner_GetHistoricDataClient, error)
}

func NewLinearCombinerClient(cc *grpc.ClientConn) LinearCombinerClient { return &lcClient{cc} }

type lcClient struct{ cc *grpc.ClientConn }

func (c *lcClient) SyncTransformer(ctx context.Context, opts ...grpc.CallOption) (LinearCombiner_SyncTransformerClient, error) {
	return nil, errNotGenerated
}
func (c *lcClient) SyncCoreComputer(ctx context.Context, in *LtBatch, opts ...grpc.CallOption) (LinearCombiner_SyncCoreComputerClient, error) {
	return nil, errNotGenerated
}
func (c *lcClient) GetDidMapping(ctx context.Context, in *MappingQuery, opts ...grpc.CallOption) (LinearCombiner_GetDidMappingClient, error) {
	return nil, errNotGenerated
}
func (c *lcClient) GetHistoricData(ctx context.Context, in *LtHistoryBatch, opts ...grpc.CallOption) (LinearCombiner_GetHistoricDataClient, error) {
	return nil, errNotGenerated
}

// ---- Trust matrix / trust vector / compute ------------------------------

type TrustMatrixEntry struct {
	Truster, Trustee string
	Value            float64
}

type TrustMatrixClient interface {
	Create(ctx context.Context, opts ...grpc.CallOption) (string, error)
	Flush(ctx context.Context, id string, opts ...grpc.CallOption) error
	Update(ctx context.Context, id string, timestamp uint64, entries []TrustMatrixEntry, opts ...grpc.CallOption) error
}

func NewTrustMatrixClient(cc *grpc.ClientConn) TrustMatrixClient { return &trustMatrixClient{cc} }

type trustMatrixClient struct{ cc *grpc.ClientConn }

func (c *trustMatrixClient) Create(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	return "", errNotGenerated
}
func (c *trustMatrixClient) Flush(ctx context.Context, id string, opts ...grpc.CallOption) error {
	return errNotGenerated
}
func (c *trustMatrixClient) Update(ctx context.Context, id string, timestamp uint64, entries []TrustMatrixEntry, opts ...grpc.CallOption) error {
	return errNotGenerated
}

type TrustVectorEntry struct {
	DID   string
	Value float64
}

type TrustVectorClient interface {
	Create(ctx context.Context, opts ...grpc.CallOption) (string, error)
	Flush(ctx context.Context, id string, opts ...grpc.CallOption) error
	Get(ctx context.Context, id string, opts ...grpc.CallOption) (timestamp uint64, entries []TrustVectorEntry, err error)
	Update(ctx context.Context, id string, timestamp uint64, entries []TrustVectorEntry, opts ...grpc.CallOption) error
}

func NewTrustVectorClient(cc *grpc.ClientConn) TrustVectorClient { return &trustVectorClient{cc} }

type trustVectorClient struct{ cc *grpc.ClientConn }

func (c *trustVectorClient) Create(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	return "", errNotGenerated
}
func (c *trustVectorClient) Flush(ctx context.Context, id string, opts ...grpc.CallOption) error {
	return errNotGenerated
}
func (c *trustVectorClient) Get(ctx context.Context, id string, opts ...grpc.CallOption) (uint64, []TrustVectorEntry, error) {
	return 0, nil, errNotGenerated
}
func (c *trustVectorClient) Update(ctx context.Context, id string, timestamp uint64, entries []TrustVectorEntry, opts ...grpc.CallOption) error {
	return errNotGenerated
}

type ComputeParams struct {
	LocalTrustID   string
	PreTrustID     string
	GlobalTrustID  string
	Alpha          *float64
	Epsilon        *float64
	MaxIterations  uint32
	Destinations   []string
}

type ComputeClient interface {
	BasicCompute(ctx context.Context, params ComputeParams, opts ...grpc.CallOption) error
}

func NewComputeClient(cc *grpc.ClientConn) ComputeClient { return &computeClient{cc} }

type computeClient struct{ cc *grpc.ClientConn }

func (c *computeClient) BasicCompute(ctx context.Context, params ComputeParams, opts ...grpc.CallOption) error {
	return errNotGenerated
}

var errNotGenerated = &notGeneratedError{}

type notGeneratedError struct{}

func (*notGeneratedError) Error() string {
	return "pb: protoc-generated client body not wired; raw gRPC transport is out of scope for this module"
}
