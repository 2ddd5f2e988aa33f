package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"millionaire-quiz-service/internal/domain"
	"millionaire-quiz-service/internal/game"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Log struct {
		Level    string `yaml:"level" env:"LOG_LEVEL"`
		Encoding string `yaml:"encoding" env:"LOG_ENCODING"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Questions struct {
		Path string `yaml:"path" env:"QUESTIONS_PATH"`
		TTL  string `yaml:"ttl" env:"QUESTIONS_TTL"`
	} `yaml:"questions"`
	Game struct {
		TimeLimit string       `yaml:"timeLimit" env:"GAME_TIME_LIMIT"`
		Prizes    []game.Level `yaml:"prizes"`
	} `yaml:"game"`
	Users []SeedUser `yaml:"users"`
}

// SeedUser is registered at startup when missing.
type SeedUser struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Load reads YAML config from path, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// PrizeTable builds the configured ladder, or the default one when none is set.
func (c Config) PrizeTable() (game.PrizeTable, error) {
	if len(c.Game.Prizes) == 0 {
		return game.DefaultPrizeTable(), nil
	}
	return game.NewPrizeTable(c.Game.Prizes)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// QuestionBank is the YAML layout of a question file.
type QuestionBank struct {
	Questions []domain.Question `yaml:"questions"`
}

// LoadQuestions reads a question bank file.
func LoadQuestions(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bank QuestionBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	for _, q := range bank.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question at level %d has no id", q.Level)
		}
		for _, a := range q.Answers {
			if a == "" {
				return nil, fmt.Errorf("question %s needs four answers", q.ID)
			}
		}
	}
	return bank.Questions, nil
}
