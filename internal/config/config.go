package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration, loaded from YAML with
// environment variable expansion ($VAR / ${VAR} in any string value).
type Config struct {
	Port int `yaml:"port"`

	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Auth struct {
		AccessSecret string `yaml:"accessSecret"`
	} `yaml:"auth"`

	Database struct {
		SQLitePath string `yaml:"sqlitePath"`
	} `yaml:"database"`

	Provider struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"provider"`

	Run struct {
		PollIntervalMS int `yaml:"pollIntervalMs"`
		TimeoutMS      int `yaml:"timeoutMs"`
	} `yaml:"run"`

	Experience struct {
		ScriptDir      string `yaml:"scriptDir"`
		DialogFallback string `yaml:"dialogFallback"`
		HotReload      bool   `yaml:"hotReload"`
	} `yaml:"experience"`

	Contribution struct {
		LLMQuestions    bool `yaml:"llmQuestions"`
		RequestTTLHours int  `yaml:"requestTtlHours"`
	} `yaml:"contribution"`

	Maintenance struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"maintenance"`
}

// Load reads and parses the configuration file at path.
// A missing file is not an error — defaults apply.
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&c)
			return c, nil
		}
		return c, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes with environment
// variable expansion.
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	return c, nil
}

func applyDefaults(c *Config) {
	if c.Port == 0 {
		c.Port = 8710
	}
	if c.App.Name == "" {
		c.App.Name = "memoir"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "./data/memoir.db"
	}
	if c.Provider.Model == "" {
		c.Provider.Model = "gpt-4o-mini"
	}
	if c.Run.PollIntervalMS <= 0 {
		c.Run.PollIntervalMS = 890
	}
	if c.Run.TimeoutMS <= 0 {
		c.Run.TimeoutMS = 55000
	}
	if c.Experience.ScriptDir == "" {
		c.Experience.ScriptDir = "./experiences"
	}
	if c.Experience.DialogFallback == "" {
		c.Experience.DialogFallback = "Give me a moment to collect my thoughts."
	}
	if c.Contribution.RequestTTLHours <= 0 {
		c.Contribution.RequestTTLHours = 72
	}
	if c.Maintenance.Schedule == "" {
		c.Maintenance.Schedule = "0 3 * * *"
	}
	if c.Auth.AccessSecret == "" {
		c.Auth.AccessSecret = strings.TrimSpace(os.Getenv("MEMOIR_ACCESS_SECRET"))
	}
}

// PollInterval returns the run poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Run.PollIntervalMS) * time.Millisecond
}

// RunTimeout returns the overall run timeout as a duration.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Run.TimeoutMS) * time.Millisecond
}

// RequestTTL returns how long a contribution may sit in requested state.
func (c Config) RequestTTL() time.Duration {
	return time.Duration(c.Contribution.RequestTTLHours) * time.Hour
}
