package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/charadev96/galleryclient/internal/client/api"
	"github.com/charadev96/galleryclient/internal/client/config"
	"github.com/charadev96/galleryclient/internal/client/domain"
	"github.com/charadev96/galleryclient/internal/client/navigation"
	"github.com/charadev96/galleryclient/internal/client/repository"
	"github.com/charadev96/galleryclient/internal/client/session"
	shared "github.com/charadev96/galleryclient/internal/shared/domain"
	"github.com/charadev96/galleryclient/internal/shared/log"
)

// Policy decides whether the application waits for session rehydration
// before becoming interactive.
type Policy int

const (
	// PolicyGated blocks Start until rehydration settled. The guard never
	// sees a valid persisted session as unauthenticated.
	PolicyGated Policy = iota
	// PolicyBackground returns from Start at once. Until rehydration
	// settles the guard may redirect routes a valid session could open.
	PolicyBackground
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case config.StartupGated, "":
		return PolicyGated, nil
	case config.StartupBackground:
		return PolicyBackground, nil
	}
	return PolicyGated, fmt.Errorf("unknown startup policy '%s'", s)
}

type App struct {
	API    *api.Client
	Store  *session.Store
	Router *navigation.Router
	Tokens domain.TokenRepository
	Policy Policy
	Logger *zerolog.Logger

	closer io.Closer
}

// Open wires an App from cfg: the token repository, the HTTP client, the
// session store and the router. Close releases the repository.
func Open(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	policy, err := ParsePolicy(cfg.Startup)
	if err != nil {
		return nil, err
	}

	tokens, closer, err := repository.Open(ctx, cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token repository: %w", err)
	}
	logger.Info().
		Str("driver", cfg.Storage.Driver).
		Str("file", cfg.Storage.Path).
		Msg("opened token repository")

	apiClient := &api.Client{
		BaseURL: cfg.API.BaseURL,
		HTTP:    &http.Client{Timeout: cfg.API.Timeout.Duration},
		Scheme:  cfg.API.AuthScheme,
		Logger:  log.Module(logger, "api"),
	}
	store := &session.Store{
		API:    apiClient,
		Tokens: tokens,
		Logger: log.Module(logger, "session"),
	}
	apiClient.Tokens = store
	apiClient.OnUnauthorized = store.Invalidate

	router := navigation.NewRouter(store, navigation.DefaultRoutes())
	router.Logger = log.Module(logger, "router")

	return &App{
		API:    apiClient,
		Store:  store,
		Router: router,
		Tokens: tokens,
		Policy: policy,
		Logger: logger,
		closer: closer,
	}, nil
}

func (a *App) logger() *zerolog.Logger {
	if a.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return a.Logger
}

// Start reads the persisted token and rehydrates the session from it
// according to Policy. The returned channel is closed once rehydration
// settled, successfully or not. Failures are logged, the application is
// usable unauthenticated.
func (a *App) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	token, err := a.persistedToken(ctx)
	if err != nil {
		a.logger().Warn().
			Err(err).
			Msg("failed to read persisted token, starting unauthenticated")
	}

	rehydrate := func() {
		defer close(done)
		if err := a.Store.Rehydrate(ctx, token); err != nil {
			a.logger().Warn().
				Err(err).
				Msg("failed to restore session")
			return
		}
		a.logger().Info().
			Str("state", a.Store.State().String()).
			Msg("session restored")
	}

	switch a.Policy {
	case PolicyBackground:
		go rehydrate()
	default:
		rehydrate()
	}
	return done
}

func (a *App) persistedToken(ctx context.Context) (string, error) {
	if a.Tokens == nil {
		return "", nil
	}
	token, err := a.Tokens.Get(ctx, domain.TokenKey)
	if errors.Is(err, shared.ErrNotExist) {
		return "", nil
	}
	return token, err
}

func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
