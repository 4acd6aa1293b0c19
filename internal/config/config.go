// Package config loads the service configuration from defaults, an optional
// .env file, CODETUBE_* environment variables and command line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/koding/multiconfig"

	"github.com/codetube/codetube/internal/code"
)

// Run modes.
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const envPrefix = "CODETUBE"

// Config defines the server configuration
type Config struct {
	// server
	Mode        string `flagUsage:"run mode: all, api or worker" default:"all"`
	HTTPAddr    string `flagUsage:"specifies the http binding address" default:":8080"`
	MonitorAddr string `flagUsage:"specifies the metrics binding address" default:":8081"`
	AuthToken   string `flagUsage:"bearer token required on API routes"`

	// storage
	DatabaseURL string `flagUsage:"postgres connection string"`
	Migrate     bool   `flagUsage:"apply the database schema on start" default:"true"`

	// worker
	Workers        int           `flagUsage:"number of job worker goroutines" default:"5"`
	WorkerInterval time.Duration `flagUsage:"interval between job queue checks" default:"500ms"`
	JobMaxAttempts int           `flagUsage:"attempts before a queued run is marked failed" default:"3"`
	JobStaleAfter  time.Duration `flagUsage:"age of a running job's claim before another worker retakes it" default:"10m"`

	// judge0
	JudgeURL            string        `flagUsage:"Judge0 base URL" default:"https://judge0-ce.p.rapidapi.com"`
	JudgeAPIKey         string        `flagUsage:"Judge0 API key (required to run code)"`
	JudgeAPIHost        string        `flagUsage:"RapidAPI host; empty sends the key as X-Auth-Token" default:"judge0-ce.p.rapidapi.com"`
	JudgePollInterval   time.Duration `flagUsage:"delay between status checks" default:"1s"`
	JudgeMaxPolls       int           `flagUsage:"status checks before a run times out (0 = unbounded)" default:"60"`
	JudgeMaxWait        time.Duration `flagUsage:"wall time before a run times out (0 = unbounded)" default:"2m"`
	JudgeRequestTimeout time.Duration `flagUsage:"timeout of a single Judge0 request" default:"30s"`

	// logger
	Release     bool `flagUsage:"release level of logs"`
	Silent      bool `flagUsage:"do not print logs"`
	EnableDebug bool `flagUsage:"enable debug logs"`

	EnableMetrics bool `flagUsage:"enable prometheus metrics endpoint"`
}

// Load loads config from .env, environment variables and os.Args.
func (c *Config) Load() error {
	return c.LoadArgs(os.Args[1:])
}

// LoadArgs is Load with an explicit argument list.
func (c *Config) LoadArgs(args []string) error {
	// .env is optional
	_ = godotenv.Load()

	if args == nil {
		args = []string{}
	}
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    envPrefix,
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: envPrefix,
			Args:      args,
		},
	)
	if err := cl.Load(c); err != nil {
		return err
	}
	return c.Validate()
}

// Validate checks settings that would otherwise fail later in a confusing way.
// A missing Judge0 key is not an error here: runs fail fast on their own.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAll, ModeAPI, ModeWorker:
	default:
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url is required (set %s_DATABASE_URL)", envPrefix)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.JudgeMaxWait > 0 && c.JobStaleAfter <= c.JudgeMaxWait {
		return fmt.Errorf("job stale after (%s) must exceed judge max wait (%s)", c.JobStaleAfter, c.JudgeMaxWait)
	}
	if c.JobMaxAttempts <= 0 {
		return fmt.Errorf("job max attempts must be positive, got %d", c.JobMaxAttempts)
	}
	return nil
}

// Judge0 returns the client settings.
func (c *Config) Judge0() code.Judge0Config {
	return code.Judge0Config{
		URL:            c.JudgeURL,
		APIKey:         c.JudgeAPIKey,
		APIHost:        c.JudgeAPIHost,
		PollInterval:   c.JudgePollInterval,
		MaxPolls:       c.JudgeMaxPolls,
		MaxWait:        c.JudgeMaxWait,
		RequestTimeout: c.JudgeRequestTimeout,
	}
}
