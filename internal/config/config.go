// Package config provides configuration management for the timeline agent.
//
// Settings are layered, lowest precedence first: built-in defaults, an
// optional YAML file named by TIMELINE_CONFIG_FILE, a .env file in the
// working directory, and finally TIMELINE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort               = 8787
	DefaultLogLevel           = "info"
	DefaultDataDir            = ".timeline-agent"
	DefaultImportPollInterval = 5 * time.Second
	DefaultRate               = 24.0
	DefaultMaxDocumentSize    = "64 MiB"

	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "TIMELINE"

	// Environment variable names
	EnvConfigFile = "TIMELINE_CONFIG_FILE"
	EnvPort       = "TIMELINE_PORT"
	EnvLogLevel   = "TIMELINE_LOG_LEVEL"
	EnvDataDir    = "TIMELINE_DATA_DIR"

	// Database filename
	DBFilename = "timelines.db"

	// Inbox subdirectory used when no inbox is configured
	InboxDirname = "inbox"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	InboxDir() string
	ImportPollInterval() time.Duration
	DefaultRate() float64
	Headless() bool
	MaxDocumentBytes() int64
}

// settings is the decoded form shared by the YAML file and envconfig.
type settings struct {
	Port               int           `yaml:"port" envconfig:"PORT"`
	LogLevel           string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	DataDir            string        `yaml:"data_dir" envconfig:"DATA_DIR"`
	InboxDir           string        `yaml:"inbox_dir" envconfig:"INBOX_DIR"`
	ImportPollInterval time.Duration `yaml:"import_poll_interval" envconfig:"IMPORT_POLL_INTERVAL"`
	DefaultRate        float64       `yaml:"default_rate" envconfig:"DEFAULT_RATE"`
	Headless           bool          `yaml:"headless" envconfig:"HEADLESS"`
	MaxDocumentSize    string        `yaml:"max_document_size" envconfig:"MAX_DOCUMENT_SIZE"`
}

// EnvConfig is the resolved configuration.
type EnvConfig struct {
	port               int
	logLevel           string
	dataDir            string
	inboxDir           string
	importPollInterval time.Duration
	defaultRate        float64
	headless           bool
	maxDocumentBytes   int64
}

// New resolves the configuration from all sources.
func New() (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	s := settings{
		Port:               DefaultPort,
		LogLevel:           DefaultLogLevel,
		DataDir:            defaultDataDir(),
		ImportPollInterval: DefaultImportPollInterval,
		DefaultRate:        DefaultRate,
		MaxDocumentSize:    DefaultMaxDocumentSize,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := loadFile(path, &s); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	return fromSettings(s)
}

func loadFile(path string, s *settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func fromSettings(s settings) (*EnvConfig, error) {
	if s.Port < 1 || s.Port > 65535 {
		return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
	}
	if s.ImportPollInterval <= 0 {
		return nil, fmt.Errorf("invalid import poll interval %s: must be positive", s.ImportPollInterval)
	}
	if !(s.DefaultRate > 0) {
		return nil, fmt.Errorf("invalid default rate %g: must be positive", s.DefaultRate)
	}
	maxBytes, err := humanize.ParseBytes(s.MaxDocumentSize)
	if err != nil {
		return nil, fmt.Errorf("invalid max document size %q: %w", s.MaxDocumentSize, err)
	}
	if maxBytes == 0 {
		return nil, fmt.Errorf("invalid max document size %q: must be positive", s.MaxDocumentSize)
	}

	inbox := s.InboxDir
	if inbox == "" {
		inbox = filepath.Join(s.DataDir, InboxDirname)
	}

	return &EnvConfig{
		port:               s.Port,
		logLevel:           s.LogLevel,
		dataDir:            s.DataDir,
		inboxDir:           inbox,
		importPollInterval: s.ImportPollInterval,
		defaultRate:        s.DefaultRate,
		headless:           s.Headless,
		maxDocumentBytes:   int64(maxBytes),
	}, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// InboxDir returns the directory polled for timeline documents
func (c *EnvConfig) InboxDir() string {
	return c.inboxDir
}

func (c *EnvConfig) ImportPollInterval() time.Duration {
	return c.importPollInterval
}

// DefaultRate is the frame rate used when a request does not name one.
func (c *EnvConfig) DefaultRate() float64 {
	return c.defaultRate
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

// MaxDocumentBytes caps the size of an imported or posted timeline document.
func (c *EnvConfig) MaxDocumentBytes() int64 {
	return c.maxDocumentBytes
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
