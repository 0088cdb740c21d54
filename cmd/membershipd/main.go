// Command membershipd is a small demonstration binary for the membership
// registry. It is not a production coordinator daemon — the real CLI
// entry point, RPC transport, and recovery log are external collaborators
// referenced only by interface (spec.md §1) — it exists to wire the
// library together end to end: seed a few servers, start the dispatcher
// against a fake transport, and serve Prometheus metrics until interrupted.
// It does not print table snapshots.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dreamware/torua/internal/extlog"
	"github.com/dreamware/torua/internal/membership"
	"github.com/dreamware/torua/internal/transport"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := membership.DefaultConfig().FromEnv()

	reg := prometheus.NewRegistry()
	fake := transport.NewFake()
	log := extlog.NewMemLog()

	r := membership.NewRegistry(fake,
		membership.WithConfig(cfg),
		membership.WithLogger(logger),
		membership.WithPrometheusRegisterer(reg),
	)
	r.Start()
	defer r.Stop()

	seedCluster(r, log, logger)

	metricsAddr := getenv("MEMBERSHIPD_METRICS_ADDR", ":9100")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening", zap.String("addr", metricsAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics listener failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	logger.Info("membershipd stopped")
}

// seedCluster enlists a handful of demo servers: a master, two backups, and
// a membership subscriber, then crashes and removes one backup so the
// snapshot isn't trivial. It also exercises the external log interface by
// recording an info-log entry per enlistment.
func seedCluster(r *membership.Registry, log *extlog.MemLog, logger *zap.Logger) {
	master := r.GenerateID()
	r.Add(master, "tcp://127.0.0.1:11000", membership.ServiceMaster, 0)

	backup1 := r.GenerateID()
	r.Add(backup1, "tcp://127.0.0.1:11001", membership.ServiceBackup, 100)

	backup2 := r.GenerateID()
	r.Add(backup2, "tcp://127.0.0.1:11002", membership.ServiceBackup, 100)

	subscriber := r.GenerateID()
	r.Add(subscriber, "tcp://127.0.0.1:11003", membership.ServiceMembership, 0)

	for _, id := range []membership.ServerId{master, backup1, backup2, subscriber} {
		logID, err := log.Append(context.Background(), "server_added", []byte(id.String()))
		if err != nil {
			logger.Warn("info log append failed", zap.Error(err))
			continue
		}
		if err := r.SetInfoLogId(id, uint64(logID)); err != nil {
			logger.Warn("set info log id failed", zap.Error(err))
		}
	}

	if err := r.Crashed(backup2); err != nil {
		logger.Warn("crash failed", zap.Error(err))
	}
	if err := r.Remove(backup2); err != nil {
		logger.Warn("remove failed", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
