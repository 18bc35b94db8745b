package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classroom-sim-service/internal/app"
	"classroom-sim-service/internal/config"
	"classroom-sim-service/internal/infra/memory"
	pgstate "classroom-sim-service/internal/infra/postgres"
	infraredis "classroom-sim-service/internal/infra/redis"
	"classroom-sim-service/internal/platform/logger"
	"classroom-sim-service/internal/sim"
	transport "classroom-sim-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the classroom server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	rules, err := loadRules(cfg)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var backing app.StateStore
	if pool != nil {
		backing = pgstate.NewStateStore(pool)
	}

	var state app.StateStore
	switch {
	case redisClient != nil && backing != nil:
		state = infraredis.NewStateStore(redisClient, backing, redisTTL)
	case redisClient != nil:
		state = infraredis.NewStateStore(redisClient, nil, 0)
	case backing != nil:
		state = backing
	default:
		state = memory.NewStateStore()
	}

	factory := app.NewSessionFactory(rules, cfg.Classroom.Seed)
	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = infraredis.NewSessionStore(redisClient, factory, redisTTL)
	} else {
		sessions = memory.NewSessionStore(factory)
	}
	service := app.NewClassroomService(sessions, state, log)
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting classroom service", "port", finalPort, "ruleset", rules.Name,
			"redis", redisClient != nil, "postgres", pool != nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	sessions.Close()
	return err
}

// loadRules resolves the configured ruleset preset, its overrides and the tick override.
func loadRules(cfg config.Config) (sim.Ruleset, error) {
	rules, err := sim.Load(cfg.Classroom.Ruleset, &cfg.Classroom.Rules)
	if err != nil {
		return sim.Ruleset{}, err
	}
	rules.TickInterval = config.Duration(cfg.Classroom.Tick, rules.TickInterval)
	return rules, nil
}
