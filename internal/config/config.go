package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "JOURNAL_ENGINE_CONFIG"
	databaseDSN   = "DATABASE_DSN"
	httpAddrEnv   = "HTTP_ADDR"
	ipfsAPIEnv    = "IPFS_API_URL"
)

const (
	defaultQuorum     = 2
	defaultAutoAssign = 3
)

// Config holds high-level settings required across the application.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	ContentStore ContentStoreConfig `yaml:"contentStore"`
	Policy       PolicyConfig       `yaml:"policy"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig describes the engine store. An empty DSN selects the
// in-memory store; otherwise the DSN is parsed by dburl (sqlite: or
// postgres: schemes).
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ContentStoreConfig wires the IPFS HTTP API used to pin submitted content.
type ContentStoreConfig struct {
	APIURL string `yaml:"apiUrl"`
}

// PolicyConfig exposes the workflow policy parameters.
type PolicyConfig struct {
	// Quorum is the minimum review count before an article may advance to
	// pending final decision.
	Quorum int `yaml:"quorum"`
	// AutoAssign is the number of candidates automatic assignment attaches.
	AutoAssign int `yaml:"autoAssign"`
	// TieBreak resolves finalize ties: "reject" (default) or "accept".
	TieBreak string `yaml:"tieBreak"`
	// Moderators may use the privileged status-override operation.
	Moderators []string `yaml:"moderators"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.clampPolicy()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSN); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(ipfsAPIEnv); v != "" {
		c.ContentStore.APIURL = v
	}
}

// clampPolicy keeps the policy knobs in their legal ranges.
func (c *Config) clampPolicy() {
	if c.Policy.Quorum < 1 {
		log.Printf("config: quorum %d below 1, using %d", c.Policy.Quorum, defaultQuorum)
		c.Policy.Quorum = defaultQuorum
	}
	if c.Policy.AutoAssign < 1 {
		log.Printf("config: autoAssign %d below 1, using %d", c.Policy.AutoAssign, defaultAutoAssign)
		c.Policy.AutoAssign = defaultAutoAssign
	}
	if c.Policy.TieBreak != "accept" && c.Policy.TieBreak != "reject" {
		log.Printf("config: unknown tieBreak %q, using reject", c.Policy.TieBreak)
		c.Policy.TieBreak = "reject"
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server = override.Server
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.ContentStore.APIURL != "" {
		base.ContentStore = override.ContentStore
	}

	if override.Policy.Quorum != 0 {
		base.Policy.Quorum = override.Policy.Quorum
	}
	if override.Policy.AutoAssign != 0 {
		base.Policy.AutoAssign = override.Policy.AutoAssign
	}
	if override.Policy.TieBreak != "" {
		base.Policy.TieBreak = override.Policy.TieBreak
	}
	if len(override.Policy.Moderators) > 0 {
		base.Policy.Moderators = override.Policy.Moderators
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server:       ServerConfig{Addr: ":8080"},
		Database:     DatabaseConfig{DSN: ""},
		ContentStore: ContentStoreConfig{APIURL: "http://127.0.0.1:5001"},
		Policy: PolicyConfig{
			Quorum:     defaultQuorum,
			AutoAssign: defaultAutoAssign,
			TieBreak:   "reject",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
