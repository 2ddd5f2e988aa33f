package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"millionaire-quiz-service/internal/app"
	"millionaire-quiz-service/internal/config"
	"millionaire-quiz-service/internal/domain"
	"millionaire-quiz-service/internal/game"
	"millionaire-quiz-service/internal/infra/memory"
	"millionaire-quiz-service/internal/infra/postgres"
	redisinfra "millionaire-quiz-service/internal/infra/redis"
	"millionaire-quiz-service/internal/logger"
	transport "millionaire-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
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
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader
	if pool != nil {
		loader = postgres.NewQuestionLoader(pool)
	} else {
		bank, err := questionBank(cfg)
		if err != nil {
			return err
		}
		loader = memory.NewStaticQuestionLoader(bank)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, redisTTL)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	var (
		games app.GameRepository
		users app.UserRepository
	)
	switch {
	case pool != nil:
		store := postgres.NewStore(pool)
		games, users = store, store
	case redisClient != nil:
		store := redisinfra.NewStore(redisClient)
		games, users = store, store
	default:
		store := memory.NewStore()
		games, users = store, store
	}

	table, err := cfg.PrizeTable()
	if err != nil {
		return err
	}
	machine := game.NewMachine(table, game.WithTimeLimit(config.TTLDuration(cfg.Game.TimeLimit, 35*time.Minute)))
	service := app.NewGameService(games, users, questions, machine, app.WithLogger(log))

	if err := seedUsers(ctx, service, cfg.Users, log); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewAPIHandler(service, log).Register(mux)
	mux.HandleFunc("GET /ws", transport.NewWSHandler(service, log).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("starting game service", "port", finalPort, "levels", table.Levels())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// questionBank reads the configured bank file, or falls back to the built-in one.
func questionBank(cfg config.Config) ([]domain.Question, error) {
	if cfg.Questions.Path == "" {
		return sampleQuestions(), nil
	}
	return config.LoadQuestions(cfg.Questions.Path)
}

func seedUsers(ctx context.Context, service *app.GameService, seeds []config.SeedUser, log *zap.SugaredLogger) error {
	for _, seed := range seeds {
		_, err := service.RegisterUser(ctx, seed.ID, seed.Name)
		switch {
		case errors.Is(err, domain.ErrUserExists):
		case err != nil:
			return err
		default:
			log.Infow("user registered", "userId", seed.ID)
		}
	}
	return nil
}
