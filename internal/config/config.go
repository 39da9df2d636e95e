// Package config loads the tutor's configuration: built-in defaults, then
// an optional YAML file, then LUMINATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/policy"
	"github.com/AazainKhan/luminate-ai-sub000/internal/quality"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
	"github.com/AazainKhan/luminate-ai-sub000/internal/review"
	"github.com/AazainKhan/luminate-ai-sub000/internal/router"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
	"github.com/AazainKhan/luminate-ai-sub000/internal/tutor"
)

// Config is the complete configuration of one tutor instance.
type Config struct {
	// DB is the SQLite database path. Empty means the XDG default.
	DB string `yaml:"db"`

	// Course is a directory holding the course YAML files. Empty means
	// the built-in course.
	Course string `yaml:"course"`

	// Retrieval enables the course-material index.
	Retrieval bool `yaml:"retrieval"`

	LLM       llm.Config       `yaml:"llm"`
	Reasoning reasoning.Config `yaml:"reasoning"`
	Router    router.Config    `yaml:"router"`
	Policy    policy.Config    `yaml:"policy"`
	Agents    agents.Config    `yaml:"agents"`
	Quality   quality.Config   `yaml:"quality"`
	Student   student.Config   `yaml:"student"`
	Tutor     tutor.Config     `yaml:"tutor"`
	Review    review.Config    `yaml:"review"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Retrieval: true,
		LLM:       llm.DefaultConfig(),
		Reasoning: reasoning.DefaultConfig(),
		Router:    router.DefaultConfig(),
		Policy:    policy.DefaultConfig(),
		Agents:    agents.DefaultConfig(),
		Quality:   quality.DefaultConfig(),
		Student:   student.DefaultConfig(),
		Tutor:     tutor.DefaultConfig(),
		Review:    review.DefaultConfig(),
	}
}

// Load reads path over the defaults and applies the environment. An
// empty path loads the default file if one exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve returns the config file path: the flag value if set, then
// LUMINATE_CONFIG. An empty result means Load falls back to DefaultPath.
func Resolve(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("LUMINATE_CONFIG")
}

// DefaultPath returns $XDG_CONFIG_HOME/luminate/config.yaml, falling back
// to ~/.config. It returns "" when no home directory is known.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "luminate", "config.yaml")
}

// ApplyEnv overlays LUMINATE_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("LUMINATE_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("LUMINATE_COURSE"); v != "" {
		c.Course = v
	}
	if v := os.Getenv("LUMINATE_RETRIEVAL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LUMINATE_RETRIEVAL: %w", err)
		}
		c.Retrieval = b
	}
	if v := os.Getenv("LUMINATE_ROUTING_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LUMINATE_ROUTING_THRESHOLD: %w", err)
		}
		c.Reasoning.RoutingThreshold = f
		c.Router.RoutingThreshold = f
	}
	c.LLM.ApplyEnv()
	return nil
}

// Validate checks every section. LLM credentials are not checked here:
// a tutor without a model still answers from its fallbacks.
func (c *Config) Validate() error {
	if t := c.Router.RoutingThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("router: routing_threshold must be in (0, 1], got %v", t)
	}
	if c.Router.SecondaryThreshold < 0 || c.Router.SecondaryThreshold > 1 {
		return fmt.Errorf("router: secondary_threshold must be in [0, 1]")
	}
	if c.Reasoning.FollowUpMaxWords < 1 {
		return fmt.Errorf("reasoning: follow_up_max_words must be >= 1")
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm: timeout must be >= 0")
	}
	for t := range c.LLM.Models {
		if !t.Valid() {
			return fmt.Errorf("llm.models: unknown tier %q", t)
		}
	}
	if err := c.Quality.Validate(); err != nil {
		return err
	}
	if err := c.Student.Validate(); err != nil {
		return err
	}
	if err := c.Review.Validate(); err != nil {
		return err
	}
	return c.Tutor.Validate()
}
