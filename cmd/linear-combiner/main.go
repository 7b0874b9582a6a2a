// Command linear-combiner opens the persistent did<->peer-id index and
// incremental trust-matrix update log, builds the internal/lcserver.Server
// over it, and listens on a gRPC server. No service is registered on that
// gRPC server, so the four lcserver RPCs are not reachable over the network.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/ocx/trustgraph/internal/config"
	"github.com/ocx/trustgraph/internal/lcserver"
	"github.com/ocx/trustgraph/internal/lcstore"
	"github.com/ocx/trustgraph/internal/metrics"
)

func main() {
	listenAddr := flag.String("listen", "[::1]:50052", "gRPC listen address")
	dbPath := flag.String("db", "lc-storage.db", "path to the bbolt database file")
	logFormat := flag.String("log-format", "json", "log output format: json or ansi")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	_ = godotenv.Load()
	log := config.NewLogger(*logFormat, *logLevel)

	store, err := lcstore.Open(*dbPath)
	if err != nil {
		log.Error("failed to open store", "err", err, "path", *dbPath)
		os.Exit(1)
	}
	defer store.Close()

	mx := metrics.NewMetrics()
	srv := lcserver.New(store, log, mx)
	_ = srv // wired into a generated grpc.ServiceServer once protoc codegen exists; see internal/rpcclients/pb.
	// Until then this binary listens but serves no registered service — a stub, matching the client side's placeholder clients.

	lis, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.Error("failed to listen", "err", err, "addr", *listenAddr)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()

	log.Info("linear combiner listening", "addr", *listenAddr, "db", *dbPath)
	if err := grpcServer.Serve(lis); err != nil {
		log.Error("grpc server exited", "err", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "linear combiner stopped")
}
