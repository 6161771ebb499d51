// Package config loads the bot configuration from the environment and a YAML file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/keshon/airlock/internal/fatal"
	"github.com/keshon/airlock/internal/permission"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}
}

// Env holds the settings read from environment variables.
type Env struct {
	DiscordToken      string `env:"DISCORD_TOKEN"`
	ConfigPath        string `env:"CONFIG_PATH" envDefault:"config.yaml"`
	DefaultConfigPath string `env:"DEFAULT_CONFIG_PATH" envDefault:"config.default.yaml"`
	StoragePath       string `env:"STORAGE_PATH" envDefault:"datastore.json"`
}

// Config is the bot configuration. Plugin-specific sections are kept as raw
// YAML and decoded by the plugin that owns them, see Section.
type Config struct {
	Token           string               `yaml:"token"`
	CommandPrefix   string               `yaml:"commandPrefix"`
	GuildID         string               `yaml:"guildId"`
	DiscoverPlugins bool                 `yaml:"discoverPlugins"`
	Plugins         map[string]bool      `yaml:"plugins"`
	Permissions     []permission.Rule    `yaml:"permissions"`
	Sections        map[string]yaml.Node `yaml:",inline"`

	Path        string `yaml:"-"`
	StoragePath string `yaml:"-"`
}

// ReadEnv parses the environment into an Env.
func ReadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}

// Load reads and validates the configuration file named by e. Missing
// required settings are reported through latch; the returned error covers
// problems that prevent reading the file at all.
func Load(e Env, latch *fatal.Latch) (*Config, error) {
	if err := bootstrap(e.ConfigPath, e.DefaultConfigPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(e.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.ConfigPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.ConfigPath, err)
	}
	cfg.Path = e.ConfigPath
	cfg.StoragePath = e.StoragePath
	if e.DiscordToken != "" {
		cfg.Token = e.DiscordToken
	}

	cfg.check(latch)
	return cfg, nil
}

// Parse decodes and schema-checks a YAML document.
func Parse(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Plugins == nil {
		cfg.Plugins = map[string]bool{}
	}
	return cfg, nil
}

// Section decodes the named top-level section into out. It reports false
// when the section is absent.
func (c *Config) Section(name string, out any) (bool, error) {
	node, ok := c.Sections[name]
	if !ok {
		return false, nil
	}
	if err := node.Decode(out); err != nil {
		return true, fmt.Errorf("section %q: %w", name, err)
	}
	return true, nil
}

func (c *Config) check(latch *fatal.Latch) {
	if c.Token == "" {
		latch.Fatalf(`Please provide a bot token by setting DISCORD_TOKEN or editing the "token" field in %s. This is required so the bot can authenticate with Discord.`, c.Path)
	}
	if c.GuildID == "" {
		latch.Fatalf(`Please provide a guild ID by editing the "guildId" field in %s. This is required because the bot is designed to work with only one guild.`, c.Path)
	}
	if c.CommandPrefix == "" {
		latch.Fatalf(`Please provide a command prefix by editing the "commandPrefix" field in %s.`, c.Path)
	}
}

// bootstrap copies the default configuration into place when path is missing.
func bootstrap(path, defaultPath string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	src, err := os.Open(defaultPath)
	if err != nil {
		return fmt.Errorf("no config at %s and no default to copy: %w", path, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy %s: %w", defaultPath, err)
	}
	if err := dst.Close(); err != nil {
		return err
	}

	log.Printf("[INFO] A new config file was created for you, %s. You will need to edit it to configure the bot.", path)
	return nil
}

func validate(doc any) error {
	schema, err := jsonschema.CompileString("config.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	// The validator expects JSON-decoded values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("configuration is not representable as JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
