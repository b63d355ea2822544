package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/authd/internal/logger"
)

const (
	defaultListenAddr     = "localhost:8000"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProduction
	defaultAccessSeconds  = 15 * 60
	defaultRefreshSeconds = 24 * 60 * 60
	defaultLeewaySeconds  = 30
	defaultPruneSeconds   = 60 * 60
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the authd service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Redis address; when set token registry and blacklist are kept in redis instead of postgres
	RedisAddr string

	// Key used to sign and verify tokens (symmetric, HMAC-SHA-256)
	SignKey string

	// Token lifetimes and verification leeway, in seconds
	AccessSeconds  int
	RefreshSeconds int
	LeewaySeconds  int

	// How often expired blacklist entries are pruned, in seconds
	PruneSeconds int

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:       defaultLoggingLevel,
		ListenAddr:     defaultListenAddr,
		Environment:    defaultEnvironment,
		AccessSeconds:  defaultAccessSeconds,
		RefreshSeconds: defaultRefreshSeconds,
		LeewaySeconds:  defaultLeewaySeconds,
		PruneSeconds:   defaultPruneSeconds,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	setInt := func(o *int) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"REDIS_ADDRESS":          setString(&c.RedisAddr),
		"SECRET_KEY":             setString(&c.SignKey),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"ACCESS_TOKEN_LIFETIME":  setInt(&c.AccessSeconds),
		"REFRESH_TOKEN_LIFETIME": setInt(&c.RefreshSeconds),
		"TOKEN_LEEWAY":           setInt(&c.LeewaySeconds),
		"BLACKLIST_PRUNE_PERIOD": setInt(&c.PruneSeconds),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authd", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address for token registry and blacklist")
	fs.StringVarP(&c.SignKey, "secret-key", "s", c.SignKey, "Token signing key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.IntVar(&c.AccessSeconds, "access-lifetime", c.AccessSeconds, "Access token lifetime in seconds")
	fs.IntVar(&c.RefreshSeconds, "refresh-lifetime", c.RefreshSeconds, "Refresh token lifetime in seconds")
	fs.IntVar(&c.LeewaySeconds, "leeway", c.LeewaySeconds, "Token verification leeway in seconds")
	fs.IntVar(&c.PruneSeconds, "prune-period", c.PruneSeconds, "Blacklist prune period in seconds")

	return fs.Parse(args)
}
