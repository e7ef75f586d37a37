package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/auth"
	"github.com/ariefcatur/go-waste-portal.git/internal/cart"
	"github.com/ariefcatur/go-waste-portal.git/internal/catalog"
	"github.com/ariefcatur/go-waste-portal.git/internal/config"
	"github.com/ariefcatur/go-waste-portal.git/internal/events"
	"github.com/ariefcatur/go-waste-portal.git/internal/history"
	"github.com/ariefcatur/go-waste-portal.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-waste-portal.git/internal/kafka"
	"github.com/ariefcatur/go-waste-portal.git/internal/logger"
	"github.com/ariefcatur/go-waste-portal.git/internal/notify"
	"github.com/ariefcatur/go-waste-portal.git/internal/postgres"
	"github.com/ariefcatur/go-waste-portal.git/internal/redisx"
	"github.com/ariefcatur/go-waste-portal.git/internal/session"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	hc := &http.Client{Timeout: cfg.UpstreamTimeout}
	sso := upstream.NewSSOClient(upstream.NewClient("sso", cfg.SSOAuthURL, hc))
	api := upstream.NewClient("api", cfg.APIBaseURL, hc)
	carts := upstream.NewCartClient(api, upstream.NewClient("cart", cfg.CartServiceURL, hc))

	// Redis, only when a store asks for it
	var rdb *redis.Client
	if cfg.SessionStore == "redis" || cfg.CartStore == "redis" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	}

	var sessions session.Store = session.NewMemoryStore(cfg.SessionTTL)
	if cfg.SessionStore == "redis" {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	}

	var repo cart.Repository
	switch cfg.CartStore {
	case "redis":
		repo = cart.NewRedisRepository(rdb)
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Fatal("db schema", zap.Error(err))
		}
		repo = cart.NewPostgresRepository(db)
	default:
		repo = cart.NewMemoryRepository()
	}

	notices := notify.NewQueue(20)
	cartSvc := &cart.Service{Repo: repo, Backend: carts, Notify: notices, Log: log}
	browser := catalog.NewBrowser(upstream.NewCatalogClient(api), cartSvc, notices, clock, cfg.CatalogCacheTTL)
	caches := history.NewCaches(clock, cfg.History)
	hist := history.NewService(upstream.NewHistoryClient(api), caches, clock, cfg.Location(), cfg.History)

	// Kafka: announce submitted carts, and drop cached history when any instance sees one
	var prod *kafkax.Producer
	kctx, kcancel := context.WithCancel(context.Background())
	defer kcancel()
	if cfg.KafkaEnabled {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, events.TopicCartSubmitted, 1024, log)
		prod.Start(kctx)
		cartSvc.Listener = &events.Publisher{P: prod, ServiceName: cfg.ServiceName}

		group := cfg.ServiceName + "-" + uuid.NewString()
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicCartSubmitted, 2, log)
		inv := events.NewInvalidator(caches.PurgeResults, clock, log)
		go func() {
			if err := cons.Start(ctx, inv.HandleCartSubmitted); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("consumer exit", zap.Error(err))
			}
		}()
	}

	roles := auth.Roles{Admin: cfg.AdminRole, WasteImage: cfg.WasteImageRole, View: cfg.ViewRole}
	guard := &auth.Guard{
		Store:     sessions,
		SSO:       sso,
		Sync:      upstream.NewUserSyncClient(upstream.NewClient("user-sync", cfg.UserSyncURL, hc)),
		LoginURL:  cfg.SSOLoginURL,
		AdminRole: cfg.AdminRole,
		Log:       log,
	}
	router := httpx.NewRouter(httpx.Deps{
		Log:          log,
		Sessions:     sessions,
		SessionTTL:   cfg.SessionTTL,
		CookieSecure: cfg.CookieSecure,
		Guard:        guard,
		Auth:         &auth.Authenticator{SSO: sso, Store: sessions, Roles: roles, Log: log},
		Roles:        roles,
		Notices:      notices,
		Catalog:      browser,
		Carts:        cartSvc,
		History:      hist,
		Users:        upstream.NewUsersClient(api),
		Timeout:      cfg.UpstreamTimeout + 5*time.Second,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel() // stop consumer
	if prod != nil {
		kcancel() // flush & close writer
		prod.WaitClosed()
	}
}
