// Command score-computer ticks every 10 seconds, merging local-trust and
// snap-status updates per domain, triggering EigenTrust recomputation on
// interval boundaries, and publishing credential bundles (each credential
// carries a Keccak-256 id and an empty proof; nothing is signed).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ocx/trustgraph/internal/bundle"
	"github.com/ocx/trustgraph/internal/config"
	"github.com/ocx/trustgraph/internal/metrics"
	"github.com/ocx/trustgraph/internal/rpcclients/pb"
	"github.com/ocx/trustgraph/internal/scoredomain"
)

// repeatableFlag accumulates every occurrence of a repeatable CLI flag,
// the way clap's `Vec<String>` does for --domain/--lt-id/etc.
type repeatableFlag []string

func (r *repeatableFlag) String() string { return strings.Join(*r, ",") }
func (r *repeatableFlag) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	indexerGRPC := flag.String("indexer-grpc", "[::1]:50050", "indexer gRPC endpoint")
	linearCombinerGRPC := flag.String("linear-combiner-grpc", "[::1]:50052", "linear combiner gRPC endpoint")
	computeGRPC := flag.String("go-eigentrust-grpc", "[::1]:8080", "go-eigentrust gRPC endpoint")

	var domains, ltIDs, ptIDs, gtIDs, statusSchemas repeatableFlag
	flag.Var(&domains, "domain", "domain number to process (repeatable, default 2)")
	flag.Var(&ltIDs, "lt-id", "DOMAIN=ID local trust matrix id (repeatable)")
	flag.Var(&ptIDs, "pt-id", "DOMAIN=ID pre-trust vector id (repeatable)")
	flag.Var(&gtIDs, "gt-id", "DOMAIN=ID global trust vector id (repeatable)")
	flag.Var(&statusSchemas, "status-schema", "DOMAIN=SCHEMA-ID status credential schema (repeatable, default 2=4)")

	interval := flag.Uint64("interval", 600000, "interval (ms) at which to recompute scores")
	alphaFlag := flag.Float64("alpha", -1, "EigenTrust alpha value (unset if negative)")
	issuerID := flag.String("issuer-id", "did:pkh:eip155:1:0x23d86aa31d4198a78baa98e49bb2da52cd15c6f0", "score credential issuer DID")
	logLevel := flag.String("log-level", "info", "minimum log level")
	logFormat := flag.String("log-format", "", "log format: json or ansi (default: ansi if stderr is a terminal, else json)")
	s3OutputURL := flag.String("s3-output-url", "", "s3://bucket/prefix to upload score bundles to")
	flag.Parse()

	_ = godotenv.Load()

	if *logFormat == "" {
		*logFormat = "ansi"
	}
	log := config.NewLogger(*logFormat, *logLevel)

	var s3Cfg *bundle.Config
	if *s3OutputURL != "" {
		u, err := url.Parse(*s3OutputURL)
		if err != nil || u.Scheme != "s3" || u.Host == "" {
			log.Error("invalid S3 URL", "url", *s3OutputURL)
			os.Exit(1)
		}
		s3Cfg = &bundle.Config{Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}
	}

	if len(domains) == 0 {
		domains = append(domains, "2")
	}
	if len(statusSchemas) == 0 {
		statusSchemas = append(statusSchemas, "2=4")
	}

	ltIDByDomain, err := parseDomainParams(ltIDs)
	if err != nil {
		log.Error("invalid --lt-id", "err", err)
		os.Exit(1)
	}
	ptIDByDomain, err := parseDomainParams(ptIDs)
	if err != nil {
		log.Error("invalid --pt-id", "err", err)
		os.Exit(1)
	}
	gtIDByDomain, err := parseDomainParams(gtIDs)
	if err != nil {
		log.Error("invalid --gt-id", "err", err)
		os.Exit(1)
	}
	schemaByDomain, err := parseDomainParams(statusSchemas)
	if err != nil {
		log.Error("invalid --status-schema", "err", err)
		os.Exit(1)
	}

	domainIDs := map[uint32]struct{}{}
	for _, d := range domains {
		id, err := strconv.ParseUint(d, 10, 32)
		if err != nil {
			log.Error("invalid --domain", "value", d, "err", err)
			os.Exit(1)
		}
		domainIDs[uint32(id)] = struct{}{}
	}
	for m := range ltIDByDomain {
		domainIDs[m] = struct{}{}
	}
	for m := range ptIDByDomain {
		domainIDs[m] = struct{}{}
	}
	for m := range gtIDByDomain {
		domainIDs[m] = struct{}{}
	}
	for m := range schemaByDomain {
		domainIDs[m] = struct{}{}
	}

	sortedIDs := make([]uint32, 0, len(domainIDs))
	for id := range domainIDs {
		sortedIDs = append(sortedIDs, id)
	}
	sort.Slice(sortedIDs, func(i, j int) bool { return sortedIDs[i] < sortedIDs[j] })

	domainObjs := make([]*scoredomain.Domain, 0, len(sortedIDs))
	for _, id := range sortedIDs {
		domainObjs = append(domainObjs, scoredomain.New(id, ltIDByDomain[id], ptIDByDomain[id], gtIDByDomain[id], schemaByDomain[id], log))
	}

	log.Info("gRPC endpoints", "indexer", *indexerGRPC, "linear_combiner", *linearCombinerGRPC, "compute", *computeGRPC)

	idxConn := dial(log, *indexerGRPC)
	lcConn := dial(log, *linearCombinerGRPC)
	etConn := dial(log, *computeGRPC)

	clients := scoredomain.Clients{
		Indexer:        pb.NewIndexerClient(idxConn),
		LinearCombiner: pb.NewLinearCombinerClient(lcConn),
		TrustMatrix:    pb.NewTrustMatrixClient(etConn),
		TrustVector:    pb.NewTrustVectorClient(etConn),
		Compute:        pb.NewComputeClient(etConn),
	}

	mx := metrics.NewMetrics()

	var uploader *bundle.Uploader
	if s3Cfg != nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Error("cannot load AWS config", "err", err)
			os.Exit(1)
		}
		uploader = bundle.NewUploader(*s3Cfg, awsCfg)
	}

	var alpha *float64
	if *alphaFlag >= 0 {
		alpha = alphaFlag
	}

	log.Info("initializing go-eigentrust")
	for _, d := range domainObjs {
		if err := d.InitEigenTrust(context.Background(), clients.TrustMatrix, clients.TrustVector); err != nil {
			log.Error("cannot initialize the program", "err", err)
			os.Exit(1)
		}
	}

	cfg := scoredomain.RunConfig{Interval: *interval, Alpha: alpha, IssuerID: *issuerID, Uploader: uploader, Metrics: mx}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		for _, d := range domainObjs {
			start := time.Now()
			err := d.RunOnce(context.Background(), clients, cfg)
			outcome := "ok"
			if err != nil {
				outcome = "rpc_error"
				log.Error("cannot process domain", "err", err, "domain", d.ID)
			}
			mx.RecordTick(strconv.FormatUint(uint64(d.ID), 10), outcome, time.Since(start).Seconds())
		}
	}
}

func dial(log interface{ Error(string, ...interface{}) }, addr string) *grpc.ClientConn {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Error("failed to connect", "addr", addr, "err", err)
		os.Exit(1)
	}
	return conn
}

// parseDomainParams parses a list of "DOMAIN=VALUE" strings into a map,
// mirroring Main::parse_domain_params.
func parseDomainParams(specs repeatableFlag) (map[uint32]string, error) {
	out := make(map[uint32]string, len(specs))
	for _, spec := range specs {
		domain, value, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("missing equal sign in %q", spec)
		}
		id, err := strconv.ParseUint(domain, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid domain in %q: %w", spec, err)
		}
		out[uint32(id)] = value
	}
	return out, nil
}
