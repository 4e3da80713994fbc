package corpus

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables read by [LoadEnv].
const (
	EnvDB        = "STUBDEX_DB"
	EnvCacheDir  = "STUBDEX_CACHE_DIR"
	EnvRedisAddr = "STUBDEX_REDIS_ADDR"
	EnvAddr      = "STUBDEX_ADDR"
	EnvLogLevel  = "STUBDEX_LOG_LEVEL"
)

// Env holds settings taken from the environment.
type Env struct {
	DB        string
	CacheDir  string
	RedisAddr string
	Addr      string
	LogLevel  string
}

// LoadEnv loads the given .env files (default ".env") into the process
// environment, without overriding variables already set, then reads the
// stubdex settings. Missing files are ignored.
func LoadEnv(files ...string) Env {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	return Env{
		DB:        os.Getenv(EnvDB),
		CacheDir:  os.Getenv(EnvCacheDir),
		RedisAddr: os.Getenv(EnvRedisAddr),
		Addr:      os.Getenv(EnvAddr),
		LogLevel:  os.Getenv(EnvLogLevel),
	}
}

// ResolveCacheDir returns the parse cache directory: the configured one,
// then $XDG_CACHE_HOME/stubdex, then the platform user cache directory.
func (e Env) ResolveCacheDir() (string, error) {
	if e.CacheDir != "" {
		return e.CacheDir, nil
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "stubdex"), nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stubdex"), nil
}

// ResolveDB picks the database path: flag, then environment, then the
// corpus configuration, then stubdex.db in the working directory.
func ResolveDB(flag string, env Env, cfg *Config) string {
	switch {
	case flag != "":
		return flag
	case env.DB != "":
		return env.DB
	case cfg != nil && cfg.DBPath() != "":
		return cfg.DBPath()
	}
	return "stubdex.db"
}
