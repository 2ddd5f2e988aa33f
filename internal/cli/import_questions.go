package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"millionaire-quiz-service/internal/config"
	"millionaire-quiz-service/internal/infra/postgres"
	redisinfra "millionaire-quiz-service/internal/infra/redis"
	"millionaire-quiz-service/internal/logger"
)

// NewImportQuestionsCmd loads a YAML question bank into Postgres and drops
// the cached levels it touched.
func NewImportQuestionsCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-questions",
		Short: "Import a YAML question bank into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			if file == "" {
				file = cfg.Questions.Path
			}
			if file == "" {
				return fmt.Errorf("no question file given")
			}
			questions, err := config.LoadQuestions(file)
			if err != nil {
				return err
			}

			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := postgres.NewQuestionLoader(pool).Import(ctx, questions)
			if err != nil {
				return err
			}
			log.Infow("questions imported", "file", file, "count", n)

			if cfg.Redis.Addr == "" {
				return nil
			}
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()

			cache := redisinfra.NewQuestionRepository(client, nil, time.Minute)
			levels := map[int]struct{}{}
			for _, q := range questions {
				levels[q.Level] = struct{}{}
			}
			touched := make([]int, 0, len(levels))
			for level := range levels {
				touched = append(touched, level)
			}
			sort.Ints(touched)
			for _, level := range touched {
				if err := cache.Invalidate(ctx, level); err != nil {
					log.Warnw("question cache not invalidated", "level", level, "error", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "question bank YAML (defaults to questions.path)")
	return cmd
}
