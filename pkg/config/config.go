package config

import (
	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config holds the service settings read from the environment.
type Config struct {
	Port                    string `env:"PORT" envDefault:"8080"`
	Env                     string `env:"ENV" envDefault:"development"`
	LogLevel                string `env:"LOG_LEVEL" envDefault:"info"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	PostgresConnStr         string `env:"POSTGRES_CONN_STR"`
	MongoURI                string `env:"MONGO_URI"`
	MongoDatabase           string `env:"MONGO_DATABASE" envDefault:"notifyfeed"`
	JWTSecret               string `env:"JWT_SECRET"`
	AutoMigrate             bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	Prune PruneConfig
}

// PruneConfig bounds dismissal ledger maintenance. KeepLimit may be zero,
// which retains nothing; every other value must be positive.
type PruneConfig struct {
	KeepLimit         int `env:"DISMISSED_KEEP_LIMIT" envDefault:"500"`
	BatchSize         int `env:"DISMISSED_PRUNE_BATCH_SIZE" envDefault:"100"`
	UserBatchSize     int `env:"DISMISSED_USER_BATCH_SIZE" envDefault:"200"`
	MaxUsersPerRun    int `env:"DISMISSED_MAX_USERS_PER_RUN" envDefault:"200"`
	MaxRowsPerRun     int `env:"DISMISSED_MAX_ROWS_PER_RUN" envDefault:"5000"`
	MaxElapsedSeconds int `env:"DISMISSED_MAX_ELAPSED_SECONDS" envDefault:"30"`
}

// Validate checks the bounds of every tunable.
func (c PruneConfig) Validate() error {
	if c.KeepLimit < 0 {
		return errors.Errorf("DISMISSED_KEEP_LIMIT must be zero or positive, got %d", c.KeepLimit)
	}
	positive := []struct {
		name  string
		value int
	}{
		{"DISMISSED_PRUNE_BATCH_SIZE", c.BatchSize},
		{"DISMISSED_USER_BATCH_SIZE", c.UserBatchSize},
		{"DISMISSED_MAX_USERS_PER_RUN", c.MaxUsersPerRun},
		{"DISMISSED_MAX_ROWS_PER_RUN", c.MaxRowsPerRun},
		{"DISMISSED_MAX_ELAPSED_SECONDS", c.MaxElapsedSeconds},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return errors.Errorf("%s must be a positive integer, got %d", p.name, p.value)
		}
	}
	return nil
}

// Load reads .env files, if any, and parses the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logrus.Debug("no .env file found, assuming environment variables are set")
	}
	return Parse(env.Options{})
}

// Parse parses the configuration with the given env options. Tests pass an
// explicit Environment map.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, errors.Wrap(err, "unable to parse configuration")
	}
	if err := cfg.Prune.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
