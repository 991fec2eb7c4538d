// Command authcore-server serves the auth/session API over HTTP and gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/authcore/internal/config"
	pkgcrypto "github.com/and161185/authcore/internal/crypto"
	"github.com/and161185/authcore/internal/metrics"
	"github.com/and161185/authcore/internal/migrate"
	"github.com/and161185/authcore/internal/repository"
	"github.com/and161185/authcore/internal/repository/memory"
	"github.com/and161185/authcore/internal/repository/mongodb"
	"github.com/and161185/authcore/internal/repository/postgres"
	grpcserver "github.com/and161185/authcore/internal/server/grpc"
	httpserver "github.com/and161185/authcore/internal/server/http"
	"github.com/and161185/authcore/internal/service"
	"github.com/and161185/authcore/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// store bundles the repositories of one backend with its lifecycle hooks.
type store struct {
	users   repository.UserRepository
	entries repository.EntryRepository
	health  httpserver.Pinger
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := migrate.Up(ctx, cfg.DatabaseURL, log); err != nil {
			return nil, err
		}
		db, err := postgres.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		return &store{
			users:   postgres.NewUserRepo(db),
			entries: postgres.NewEntryRepo(db),
			health:  db,
			close:   db.Close,
		}, nil
	case config.DriverMongo:
		db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return &store{
			users:   mongodb.NewUserRepo(db),
			entries: mongodb.NewEntryRepo(db),
			health:  db,
			close: func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = db.Close(cctx)
			},
		}, nil
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		m := memory.New()
		return &store{users: m.Users(), entries: m.Entries(), close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}

// main loads configuration, opens the store and runs both transports until a signal arrives.
func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("authcore-server %s (%s)\n", version, buildDate)
		return
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("store", cfg.StoreDriver),
		zap.String("http", cfg.HTTPAddr),
		zap.String("grpc", cfg.GRPCAddr),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.close()

	hasher := pkgcrypto.NewHasher(cfg.SaltRounds, []byte(cfg.RefreshTokenSecret))
	issuer := token.NewIssuer(token.Config{
		Secret:     []byte(cfg.AccessTokenSecret),
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	}, hasher)
	authSvc := service.NewAuthService(st.users, st.entries, hasher, issuer, service.Config{
		MaxSessions:     cfg.MaxSessions,
		RefreshTokenLen: issuer.RefreshLen(),
	})
	entrySvc := service.NewEntryService(st.entries, nil)
	verifier := service.NewVerifier(st.users, issuer, nil)
	m := metrics.New()

	e := httpserver.New(httpserver.Deps{
		Auth:     authSvc,
		Entries:  entrySvc,
		Verifier: verifier,
		Metrics:  m,
		Log:      logger.Named("http"),
		Health:   st.health,
		Origins:  []string{cfg.FrontendOrigin},
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		return httpserver.Serve(gctx, e, httpSrv, cfg.ShutdownTimeout)
	})

	if cfg.GRPCAddr != "" {
		var creds credentials.TransportCredentials
		if cfg.TLSEnabled() {
			creds, err = credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
			if err != nil {
				return fmt.Errorf("load TLS cert/key: %w", err)
			}
		}
		gs, hs := grpcserver.NewGRPC(grpcserver.New(authSvc, m), grpcserver.Options{
			Log:      logger.Named("grpc"),
			Verifier: verifier,
			Metrics:  m,
			Creds:    creds,
		})
		if cfg.Development() {
			reflection.Register(gs)
		}
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		g.Go(func() error {
			logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr), zap.Bool("tls", creds != nil))
			return gs.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			hs.Shutdown()
			done := make(chan struct{})
			go func() {
				gs.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(cfg.ShutdownTimeout):
				gs.Stop()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
