// Command songlist-replica runs one replica of the songlist 3PC cluster:
// the protocol actor (pkg/room), its wire links to peers and master
// (pkg/transport), and the read-only surfaces operators and the GraphQL
// gateway poll (pkg/roomql, Prometheus metrics, the dtlog).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cluso-labs/songlist3pc/pkg/archive"
	"github.com/cluso-labs/songlist3pc/pkg/config"
	"github.com/cluso-labs/songlist3pc/pkg/dashboard"
	"github.com/cluso-labs/songlist3pc/pkg/dtlog"
	"github.com/cluso-labs/songlist3pc/pkg/logging"
	"github.com/cluso-labs/songlist3pc/pkg/metrics"
	"github.com/cluso-labs/songlist3pc/pkg/room"
	"github.com/cluso-labs/songlist3pc/pkg/roomql"
	"github.com/cluso-labs/songlist3pc/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to replica YAML config (optional; flags below override it)")
	selfID := flag.String("self-id", "", "This replica's id (must order as a non-negative integer)")
	addr := flag.String("addr", "", "This replica's own address, shown in its startup log (peer links use the -peers addresses)")
	peersFlag := flag.String("peers", "", "Comma-separated id=addr list of peer links, e.g. 1=tcp://10.0.0.2:9100; the lower id of each pair dials, the higher id listens")
	masterAddr := flag.String("master-addr", "", "Address to listen on for the master's connection, if this replica accepts master commands directly")
	httpAddr := flag.String("http", ":9100", "HTTP address for /health, /metrics, /graphql")
	runDashboard := flag.Bool("dashboard", false, "Run the embedded terminal dashboard in the foreground instead of blocking on a signal")
	flag.Parse()

	cfg := config.DefaultReplicaConfig()
	if *configPath != "" {
		loaded, err := config.LoadYAML(*configPath)
		if err != nil {
			log.Fatalf("songlist-replica: %v", err)
		}
		cfg = loaded
	}
	if *selfID != "" {
		cfg.SelfID = *selfID
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *masterAddr != "" {
		cfg.MasterAddr = *masterAddr
	}
	for _, peer := range parsePeers(*peersFlag) {
		cfg.Peers = append(cfg.Peers, peer)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("songlist-replica: %v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	logger.Info("starting replica", logging.String("self_id", cfg.SelfID), logging.String("addr", cfg.Addr))

	reg := metrics.NewRegistry()

	var dtLog dtlog.Log = dtlog.NewMemory(256)
	if cfg.DatabaseURL != "" {
		pg, err := dtlog.NewPostgresLog(context.Background(), cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatalf("songlist-replica: decision log: %v", err)
		}
		dtLog = pg
	}
	defer dtLog.Close()

	r := room.NewRoom(room.Config{
		SelfID:         cfg.SelfID,
		BeatRate:       cfg.BeatRate,
		AliveThreshold: cfg.AliveThreshold,
		BootstrapDelay: cfg.BootstrapDelay,
		Logger:         logger,
		Metrics:        reg,
		DTLog:          dtLog,
	}, nil)

	factory, err := newSocketFactory()
	if err != nil {
		log.Fatalf("songlist-replica: socket factory: %v", err)
	}

	for _, peer := range cfg.Peers {
		dial := cfg.SelfID < peer.ID
		if _, err := transport.Link(factory, r, peer.ID, peer.Addr, dial, logger); err != nil {
			log.Fatalf("songlist-replica: link to %s: %v", peer.ID, err)
		}
	}
	if cfg.MasterAddr != "" {
		masterPeer, err := transport.Link(factory, r, "master", cfg.MasterAddr, false, logger)
		if err != nil {
			logger.Warn("master link failed", logging.Error(err))
		} else {
			r.Send(room.JoinMaster{Master: masterPeer})
		}
	}
	r.Start()
	defer r.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if cfg.ArchiveBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Warn("archive disabled: aws config", logging.Error(err))
		} else {
			uploader := archive.NewUploader(r, awsCfg, cfg.ArchiveBucket, logger)
			go uploader.Run(ctx, cfg.ArchiveInterval)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "self_id": cfg.SelfID})
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))

	ql, err := roomql.NewServer(r)
	if err != nil {
		log.Fatalf("songlist-replica: roomql schema: %v", err)
	}
	mux.Handle("/graphql", ql.Handler())

	server := &http.Server{Addr: *httpAddr, Handler: mux}
	go func() {
		logger.Info("http server listening", logging.String("addr", *httpAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", logging.Error(err))
		}
	}()

	fmt.Printf("songlist-replica %s ready (addr=%s, http=%s)\n", cfg.SelfID, cfg.Addr, *httpAddr)

	if *runDashboard {
		if err := dashboard.Run(ctx, dashboard.RoomSnapshotter{Room: r}, cfg.SelfID, 500*time.Millisecond); err != nil {
			logger.Error("dashboard exited with error", logging.Error(err))
		}
	} else {
		<-ctx.Done()
	}

	fmt.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}

func parsePeers(raw string) []config.PeerConfig {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var peers []config.PeerConfig
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		peers = append(peers, config.PeerConfig{ID: parts[0], Addr: parts[1]})
	}
	return peers
}
