// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment is the deployment type.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Identity store backends.
const (
	BackendMemory  = "memory"
	BackendSQLite  = "sqlite"
	BackendFile    = "file"
	BackendMongo   = "mongo"
	BackendJournal = "journal"
)

var (
	identityBackends = []string{BackendMemory, BackendSQLite, BackendFile, BackendMongo}
	auditBackends    = []string{BackendMemory, BackendJournal, BackendSQLite}
)

// Config is the facegate daemon configuration.
type Config struct {
	Environment Environment    `yaml:"environment"`
	Paths       PathsConfig    `yaml:"paths"`
	Identity    IdentityConfig `yaml:"identity"`
	Audit       AuditConfig    `yaml:"audit"`
	Session     SessionConfig  `yaml:"session"`
	Kiosk       KioskConfig    `yaml:"kiosk"`
	HTTP        HTTPConfig     `yaml:"http"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides holds the fields an environment section may replace.
// Empty strings leave the base value alone.
type ConfigOverrides struct {
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Identity *IdentityConfig `yaml:"identity,omitempty"`
	Audit    *AuditConfig    `yaml:"audit,omitempty"`
	HTTP     *HTTPConfig     `yaml:"http,omitempty"`

	// ElevateOnMatch is a pointer so that an override can turn the
	// behaviour off as well as on.
	ElevateOnMatch *bool `yaml:"elevate_on_match,omitempty"`
}

// PathsConfig locates the daemon's on-disk state.
type PathsConfig struct {
	// State holds the identity database and audit journal by default.
	State string `yaml:"state"`

	// Socket is the CBOR request socket.
	Socket string `yaml:"socket"`
}

// IdentityConfig selects where enrolled descriptors live.
type IdentityConfig struct {
	// Backend is one of memory, sqlite, file, mongo.
	Backend string `yaml:"backend"`

	// Path is the database or JSON file for the sqlite and file
	// backends. Defaults to a file under paths.state.
	Path string `yaml:"path"`

	Mongo MongoConfig `yaml:"mongo"`
}

// MongoConfig configures the mongo identity backend.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// AuditConfig selects where authentication attempts are recorded.
type AuditConfig struct {
	// Backend is one of memory, journal, sqlite.
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// SessionConfig tunes the scanning loop.
type SessionConfig struct {
	// ScanInterval is a Go duration string. Default: 600ms.
	ScanInterval string `yaml:"scan_interval"`

	// StableFrames is how many consecutive single-face frames
	// enrollment waits for. Default: 3.
	StableFrames int `yaml:"stable_frames"`
}

// KioskConfig controls the privileged mode.
type KioskConfig struct {
	// ElevateOnMatch enables kiosk mode for a window right after a
	// successful verification.
	ElevateOnMatch bool `yaml:"elevate_on_match"`
}

// HTTPConfig configures the optional JSON surface.
type HTTPConfig struct {
	// Address is a host:port to listen on. Empty disables HTTP.
	Address string `yaml:"address"`
}

// Default returns the base configuration that the file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			State:  filepath.Join(homeDir, ".local", "state", "facegate"),
			Socket: "${FACEGATE_STATE}/facegate.sock",
		},
		Identity: IdentityConfig{
			Backend: BackendSQLite,
			Mongo: MongoConfig{
				Database:   "facegate",
				Collection: "face_descriptors",
			},
		},
		Audit: AuditConfig{
			Backend: BackendJournal,
		},
		Session: SessionConfig{
			ScanInterval: "600ms",
			StableFrames: 3,
		},
	}
}

// Load loads the file named by FACEGATE_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("FACEGATE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("FACEGATE_CONFIG environment variable not set; " +
			"set it to the path of your facegate.yaml, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the section for the
// selected environment, and expands path variables. It does not
// validate; call Validate before use.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.applyBackendDefaults()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		setIfNonEmpty(&c.Paths.State, overrides.Paths.State)
		setIfNonEmpty(&c.Paths.Socket, overrides.Paths.Socket)
	}
	if overrides.Identity != nil {
		setIfNonEmpty(&c.Identity.Backend, overrides.Identity.Backend)
		setIfNonEmpty(&c.Identity.Path, overrides.Identity.Path)
		setIfNonEmpty(&c.Identity.Mongo.URI, overrides.Identity.Mongo.URI)
		setIfNonEmpty(&c.Identity.Mongo.Database, overrides.Identity.Mongo.Database)
		setIfNonEmpty(&c.Identity.Mongo.Collection, overrides.Identity.Mongo.Collection)
	}
	if overrides.Audit != nil {
		setIfNonEmpty(&c.Audit.Backend, overrides.Audit.Backend)
		setIfNonEmpty(&c.Audit.Path, overrides.Audit.Path)
	}
	if overrides.HTTP != nil {
		setIfNonEmpty(&c.HTTP.Address, overrides.HTTP.Address)
	}
	if overrides.ElevateOnMatch != nil {
		c.Kiosk.ElevateOnMatch = *overrides.ElevateOnMatch
	}
}

// applyBackendDefaults fills in file locations for backends that need
// one and were not given an explicit path.
func (c *Config) applyBackendDefaults() {
	if c.Identity.Path == "" {
		switch c.Identity.Backend {
		case BackendSQLite:
			c.Identity.Path = "${FACEGATE_STATE}/identities.db"
		case BackendFile:
			c.Identity.Path = "${FACEGATE_STATE}/identities.json"
		}
	}
	if c.Audit.Path == "" {
		switch c.Audit.Backend {
		case BackendJournal:
			c.Audit.Path = "${FACEGATE_STATE}/audit.jsonl"
		case BackendSQLite:
			c.Audit.Path = "${FACEGATE_STATE}/audit.db"
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Paths.State = expandVars(c.Paths.State, vars)
	vars["FACEGATE_STATE"] = c.Paths.State

	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
	c.Identity.Path = expandVars(c.Identity.Path, vars)
	c.Identity.Mongo.URI = expandVars(c.Identity.Mongo.URI, vars)
	c.Audit.Path = expandVars(c.Audit.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. Names in vars win
// over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// ScanInterval parses Session.ScanInterval. Validate guarantees it
// parses for a validated config.
func (c *Config) ScanInterval() time.Duration {
	interval, err := time.ParseDuration(c.Session.ScanInterval)
	if err != nil {
		return 600 * time.Millisecond
	}
	return interval
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}
	if c.Paths.Socket == "" {
		errs = append(errs, fmt.Errorf("paths.socket is required"))
	}

	if !slices.Contains(identityBackends, c.Identity.Backend) {
		errs = append(errs, fmt.Errorf("identity.backend must be one of %v, got %q", identityBackends, c.Identity.Backend))
	}
	switch c.Identity.Backend {
	case BackendSQLite, BackendFile:
		if c.Identity.Path == "" {
			errs = append(errs, fmt.Errorf("identity.path is required for the %s backend", c.Identity.Backend))
		}
	case BackendMongo:
		if c.Identity.Mongo.URI == "" {
			errs = append(errs, fmt.Errorf("identity.mongo.uri is required for the mongo backend"))
		}
		if c.Identity.Mongo.Database == "" || c.Identity.Mongo.Collection == "" {
			errs = append(errs, fmt.Errorf("identity.mongo.database and identity.mongo.collection are required"))
		}
	}

	if !slices.Contains(auditBackends, c.Audit.Backend) {
		errs = append(errs, fmt.Errorf("audit.backend must be one of %v, got %q", auditBackends, c.Audit.Backend))
	}
	if c.Audit.Backend != BackendMemory && c.Audit.Path == "" {
		errs = append(errs, fmt.Errorf("audit.path is required for the %s backend", c.Audit.Backend))
	}

	if interval, err := time.ParseDuration(c.Session.ScanInterval); err != nil {
		errs = append(errs, fmt.Errorf("session.scan_interval: %w", err))
	} else if interval <= 0 {
		errs = append(errs, fmt.Errorf("session.scan_interval must be positive, got %s", interval))
	}
	if c.Session.StableFrames < 1 {
		errs = append(errs, fmt.Errorf("session.stable_frames must be at least 1, got %d", c.Session.StableFrames))
	}

	// Memory backends lose enrollments and the audit trail on restart.
	if c.Environment == Production {
		if c.Identity.Backend == BackendMemory {
			errs = append(errs, fmt.Errorf("identity.backend memory is not allowed in production"))
		}
		if c.Audit.Backend == BackendMemory {
			errs = append(errs, fmt.Errorf("audit.backend memory is not allowed in production"))
		}
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the state directory and the socket's parent.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.State, filepath.Dir(c.Paths.Socket)} {
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

func setIfNonEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}
