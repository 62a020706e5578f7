// Package config loads settings for the relay and the client from a YAML or
// JSONC file, CHESSLINK_* environment variables, and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Relay  RelayConfig  `yaml:"relay"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

type RelayConfig struct {
	Addr string `yaml:"addr"`

	// IntakeAddr enables the line-oriented TCP command intake when set.
	IntakeAddr string `yaml:"intake_addr"`

	// StateFile persists the game across restarts when set.
	StateFile string `yaml:"state_file"`

	Strict          bool   `yaml:"strict"`
	HistoryCapacity int    `yaml:"history_capacity"`
	AllowOrigins    string `yaml:"allow_origins"`
}

type ClientConfig struct {
	RelayURL       string        `yaml:"relay_url"`
	Mode           string        `yaml:"mode"`
	HumanColor     string        `yaml:"human_color"`
	AutoplayDelay  time.Duration `yaml:"autoplay_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	LogFile        string        `yaml:"log_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	ModeAuthoritative = "authoritative"
	ModeSimulation    = "simulation"
)

func Default() *Config {
	return &Config{
		Relay: RelayConfig{
			Addr:            ":8765",
			HistoryCapacity: 64,
			AllowOrigins:    "*",
		},
		Client: ClientConfig{
			RelayURL:       "http://localhost:8765",
			Mode:           ModeAuthoritative,
			HumanColor:     "white",
			AutoplayDelay:  800 * time.Millisecond,
			RequestTimeout: 5 * time.Second,
			ReconnectDelay: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a config from defaults, the file at path (or CHESSLINK_CONFIG
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CHESSLINK_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a config file into c. Files ending in .json or .jsonc may
// carry comments and trailing commas.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Plain JSON is valid YAML, which gives durations the same
		// "800ms" syntax in both formats.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	str("CHESSLINK_RELAY_ADDR", &c.Relay.Addr)
	str("CHESSLINK_INTAKE_ADDR", &c.Relay.IntakeAddr)
	str("CHESSLINK_STATE_FILE", &c.Relay.StateFile)
	str("CHESSLINK_ALLOW_ORIGINS", &c.Relay.AllowOrigins)
	if v, ok := lookup("CHESSLINK_STRICT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CHESSLINK_STRICT: %w", err))
		} else {
			c.Relay.Strict = b
		}
	}
	if v, ok := lookup("CHESSLINK_HISTORY_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CHESSLINK_HISTORY_CAPACITY: %w", err))
		} else {
			c.Relay.HistoryCapacity = n
		}
	}

	str("CHESSLINK_RELAY_URL", &c.Client.RelayURL)
	str("CHESSLINK_MODE", &c.Client.Mode)
	str("CHESSLINK_HUMAN_COLOR", &c.Client.HumanColor)
	str("CHESSLINK_LOG_FILE", &c.Client.LogFile)
	duration("CHESSLINK_AUTOPLAY_DELAY", &c.Client.AutoplayDelay)
	duration("CHESSLINK_REQUEST_TIMEOUT", &c.Client.RequestTimeout)
	duration("CHESSLINK_RECONNECT_DELAY", &c.Client.ReconnectDelay)

	str("CHESSLINK_LOG_LEVEL", &c.Log.Level)
	str("CHESSLINK_LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// RelayFlags binds relay settings to flagSet. Call after Load so flags
// default to the loaded values and override them when given.
func (c *Config) RelayFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Relay.Addr, "addr", c.Relay.Addr, "HTTP listen address")
	flagSet.StringVar(&c.Relay.IntakeAddr, "intake-addr", c.Relay.IntakeAddr, "TCP command intake address (disabled when empty)")
	flagSet.StringVar(&c.Relay.StateFile, "state-file", c.Relay.StateFile, "persist the game to this file")
	flagSet.BoolVar(&c.Relay.Strict, "strict", c.Relay.Strict, "enforce turn order and legality")
	flagSet.IntVar(&c.Relay.HistoryCapacity, "history", c.Relay.HistoryCapacity, "move history capacity")
	flagSet.StringVar(&c.Log.Level, "log-level", c.Log.Level, "debug, info, warn or error")
}

// ClientFlags binds client settings to flagSet.
func (c *Config) ClientFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Client.RelayURL, "relay", c.Client.RelayURL, "relay base URL")
	flagSet.StringVar(&c.Client.Mode, "mode", c.Client.Mode, "authoritative or simulation")
	flagSet.StringVar(&c.Client.HumanColor, "color", c.Client.HumanColor, "color played by the human")
	flagSet.DurationVar(&c.Client.AutoplayDelay, "autoplay-delay", c.Client.AutoplayDelay, "delay before the autonomous side moves")
	flagSet.StringVar(&c.Client.LogFile, "log-file", c.Client.LogFile, "write logs to this file")
	flagSet.StringVar(&c.Log.Level, "log-level", c.Log.Level, "debug, info, warn or error")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Relay.Addr == "" {
		errs = append(errs, errors.New("relay.addr is required"))
	}
	if c.Relay.HistoryCapacity <= 0 {
		errs = append(errs, fmt.Errorf("relay.history_capacity must be positive, got %d", c.Relay.HistoryCapacity))
	}
	if c.Client.Mode != ModeAuthoritative && c.Client.Mode != ModeSimulation {
		errs = append(errs, fmt.Errorf("client.mode must be %q or %q, got %q", ModeAuthoritative, ModeSimulation, c.Client.Mode))
	}
	if c.Client.HumanColor != "white" && c.Client.HumanColor != "black" {
		errs = append(errs, fmt.Errorf("client.human_color must be white or black, got %q", c.Client.HumanColor))
	}
	for name, d := range map[string]time.Duration{
		"client.autoplay_delay":  c.Client.AutoplayDelay,
		"client.request_timeout": c.Client.RequestTimeout,
		"client.reconnect_delay": c.Client.ReconnectDelay,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger returns a logger writing to w in the configured format.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}

// PathFromArgs returns the --config value in args, ignoring every other
// flag, so the file can be loaded before flags that default to its values
// are defined.
func PathFromArgs(args []string) string {
	flagSet := pflag.NewFlagSet("config", pflag.ContinueOnError)
	flagSet.ParseErrorsWhitelist.UnknownFlags = true
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() {}
	path := flagSet.String("config", "", "")
	flagSet.Parse(args)
	return *path
}
