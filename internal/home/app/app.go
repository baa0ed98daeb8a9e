package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"time"

	homehttp "github.com/hearth-im/hearth/internal/home/http"
	"github.com/hearth-im/hearth/internal/home/service"
	"github.com/hearth-im/hearth/internal/home/store"
	"github.com/hearth-im/hearth/internal/home/store/sqlite"
	"github.com/hearth-im/hearth/pkg/jwtx"
	"github.com/hearth-im/hearth/pkg/slogx"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App is the assembled process: storage, signing identity, services and the
// HTTP server, ready to Run.
type App struct {
	cfg    Config
	log    *slog.Logger
	store  store.Store
	server *stdhttp.Server
	sweep  *service.Housekeeper
}

// New builds the app. Any failure here is fatal by design: the process must
// not serve without its database, its signing identity or its config.
func New(ctx context.Context, cfg Config) (*App, error) {
	log := slogx.New(slogx.Config{
		Service: "hearthd",
		Version: Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	st, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	identity, err := jwtx.LoadOrGenerate(cfg.KeyDir)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: signing identity: %w", err)
	}
	log.Info("signing identity ready", "kid", identity.KID(), "key_dir", cfg.KeyDir)

	tokens := service.NewTokenService(st, identity, cfg.ServerURL)
	users := service.NewUserService(st)
	community := service.NewCommunityService(st)
	evaluator := service.NewEvaluator(st)

	if cfg.AdminUsername != "" {
		if err := users.EnsureHostAdmin(slogx.WithContext(ctx, log), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			st.Close()
			return nil, fmt.Errorf("app: bootstrap admin: %w", err)
		}
	}

	router := homehttp.NewRouter(homehttp.Deps{
		Logger:    log,
		ServerURL: cfg.ServerURL,
		Identity:  identity,
		Verifier:  jwtx.NewVerifier(identity, cfg.ServerURL),
		Resolver:  jwtx.NewResolver(jwtx.ResolverOptions{Audience: cfg.ServerURL}),
		Tokens:    tokens,
		Users:     users,
		Community: community,
		Evaluator: evaluator,
		Store:     st,
	})

	return &App{
		cfg:   cfg,
		log:   log,
		store: st,
		sweep: service.NewHousekeeper(st, cfg.HousekeepInterval),
		server: &stdhttp.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(slogx.WithContext(context.Background(), a.log))
	defer stopSweep()
	go a.sweep.Run(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", a.cfg.ListenAddr, "server_url", a.cfg.ServerURL)
		if err := a.server.ListenAndServe(); !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		a.store.Close()
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	stopSweep()
	if closeErr := a.store.Close(); err == nil {
		err = closeErr
	}
	return err
}
