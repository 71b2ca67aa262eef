// Package companionservice wires configuration, storage, outbound clients,
// the HTTP surface, and the scheduler loop into a single runnable service.
package companionservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warmline/warmline/server/internal/api"
	"github.com/warmline/warmline/server/internal/audiocache"
	"github.com/warmline/warmline/server/internal/clock"
	"github.com/warmline/warmline/server/internal/config"
	"github.com/warmline/warmline/server/internal/conversation"
	"github.com/warmline/warmline/server/internal/factory"
	"github.com/warmline/warmline/server/internal/health"
	"github.com/warmline/warmline/server/internal/logger"
	"github.com/warmline/warmline/server/internal/reply"
	"github.com/warmline/warmline/server/internal/scheduler"
	"github.com/warmline/warmline/server/internal/speech"
	"github.com/warmline/warmline/server/internal/store"
)

// Run starts the companion call service and blocks until shutdown or error.
func Run() error {
	log := logger.New("companion-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Configuration invalid")
		return err
	}
	logger.SetGlobalLevel(cfg.LogLevel)

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("reference_timezone", cfg.ReferenceTimezone).
		Int("tick_interval_s", cfg.TickIntervalSeconds).
		Msg("Companion service starting")

	// Cancellable root context bound to SIGINT/SIGTERM.
	ctx, stop := newServerContext()
	defer stop()

	st, closeStore, err := factory.NewStore(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Store unavailable")
		return err
	}
	defer func() { _ = closeStore() }()

	loop := newSchedulerLoop(cfg, st, log)
	router := buildRouter(cfg, st, loop, log)

	svcHealth := startHealthCheckers(ctx, cfg, log, st)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Err(err).Msg("startup health check failed")
		return err
	}

	// The scheduler runs alongside the HTTP server for the process lifetime.
	// Run only returns on context cancel, which shutdown handles below.
	loopErr := make(chan error, 1)
	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			loopErr <- err
		}
	}()

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	case err := <-loopErr:
		log.Error().Err(err).Msg("scheduler loop exited")
		return err
	}
}

// newSchedulerLoop builds the due-call detection loop in the configured
// reference timezone on the real clock.
func newSchedulerLoop(cfg *config.Config, st store.Store, log zerolog.Logger) *scheduler.Loop {
	det := scheduler.NewDetector(cfg.Location())
	return scheduler.NewLoop(st, det, clock.System{}, scheduler.Config{Interval: cfg.TickInterval()}, log)
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(cfg *config.Config, st store.Store, loop *scheduler.Loop, log zerolog.Logger) http.Handler {
	replies := reply.NewOpenAIGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ReplyModel, cfg.DependencyTimeout())
	synth := speech.NewElevenLabsSynthesizer(cfg.ElevenLabsBaseURL, cfg.ElevenLabsAPIKey, cfg.SynthModel, cfg.DependencyTimeout())
	cache := audiocache.New(audiocache.DefaultTTL)
	engine := conversation.NewEngine(replies, synth, cache, cfg.GreetingText, cfg.DependencyTimeout(), log)

	// Fallback persona for callers whose number matches no user row; known
	// callers get their stored companion name, voice, and interests.
	persona := conversation.Persona{
		CompanionName: "your companion",
		VoiceID:       cfg.DefaultVoiceID,
	}

	voice := api.NewVoiceHandler(engine, cache, persona, st.Users(), log)
	admin := api.NewAdminHandler(st, loop)
	return api.NewRouter(voice, admin, api.NewHealthHandler())
}

// startHealthCheckers starts the store checker and the service aggregator,
// then binds aggregated health to the /health handler.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns interval*2 with a 60 second floor.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
