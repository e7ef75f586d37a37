package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/ariefcatur/go-waste-portal.git/internal/config"
	"github.com/ariefcatur/go-waste-portal.git/internal/history"
	"github.com/ariefcatur/go-waste-portal.git/internal/logger"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// exporter writes flat history pages EXPORT_START..EXPORT_END to a CSV file,
// the same file the viewer's range download produces.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel, cfg.ServiceName+"-exporter")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := mustAtoi(os.Getenv("EXPORT_START"), "1")
	end := mustAtoi(os.Getenv("EXPORT_END"), "1")
	outDir := getenv("EXPORT_DIR", ".")

	clock := clockwork.NewRealClock()
	api := upstream.NewClient("api", cfg.APIBaseURL, &http.Client{Timeout: cfg.UpstreamTimeout})
	svc := history.NewService(upstream.NewHistoryClient(api), history.NewCaches(clock, cfg.History), clock, cfg.Location(), cfg.History)

	log.Info("export started", zap.Int("start", start), zap.Int("end", end))
	f, err := svc.Viewer("exporter").Export(ctx, history.ScopeRange, start, end)
	if err != nil {
		log.Fatal("export", zap.Error(err))
	}
	path := filepath.Join(outDir, f.Name)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		log.Fatal("write file", zap.String("path", path), zap.Error(err))
	}
	log.Info("export written", zap.String("path", path), zap.Int("bytes", len(f.Data)))
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
