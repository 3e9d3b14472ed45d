// Package config loads the flood-alert settings from .env, an optional YAML file and the environment
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LINE delivery modes
const (
	LineModeBroadcast = "broadcast"
	LineModePush      = "push"
)

const (
	DefaultSchedule = "0 6,12,18 * * *"
	DefaultTimezone = "Asia/Bangkok"
)

// GaugeConfig configures the rendered-page gauge fetcher
type GaugeConfig struct {
	URL         string        `yaml:"url"`
	Station     string        `yaml:"station"`
	LevelCell   int           `yaml:"level_cell"` // index of the data cell holding the level, 0 = first
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryPause  time.Duration `yaml:"retry_pause"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	BankLevel   float64       `yaml:"bank_level"`
	ChromePath  string        `yaml:"chrome_path"`
}

// DischargeConfig configures the dam discharge client
type DischargeConfig struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	StationKey string        `yaml:"station_key"`
}

// HistoryConfig points at the historical discharge dataset
type HistoryConfig struct {
	File  string `yaml:"file"`
	Years []int  `yaml:"years"` // Buddhist years, in display order; empty means the previous year
}

// NotifyConfig holds the credentials and retry policy of every transport
type NotifyConfig struct {
	LineToken           string        `yaml:"line_token"`
	LineMode            string        `yaml:"line_mode"`
	LineTo              string        `yaml:"line_to"`
	LineAPIBase         string        `yaml:"line_api_base"`
	WebhookURL          string        `yaml:"webhook_url"`
	TelegramToken       string        `yaml:"telegram_token"`
	TelegramChatID      int64         `yaml:"telegram_chat_id"`
	TelegramAPIEndpoint string        `yaml:"telegram_api_endpoint"` // e.g. https://api.telegram.org/bot%s/%s
	Timeout             time.Duration `yaml:"timeout"`
	MaxRetries          int           `yaml:"max_retries"`
	InitialBackoff      time.Duration `yaml:"initial_backoff"`
}

// Config holds all settings of the alert and scheduler binaries
type Config struct {
	Gauge          GaugeConfig     `yaml:"gauge"`
	Discharge      DischargeConfig `yaml:"discharge"`
	History        HistoryConfig   `yaml:"history"`
	Notify         NotifyConfig    `yaml:"notify"`
	Timezone       string          `yaml:"timezone"`
	PushgatewayURL string          `yaml:"pushgateway_url"`
	Schedule       string          `yaml:"schedule"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Gauge: GaugeConfig{
			Timeout:     30 * time.Second,
			MaxRetries:  3,
			RetryPause:  5 * time.Second,
			SettleDelay: 2 * time.Second,
			BankLevel:   13.0,
		},
		Discharge: DischargeConfig{
			Timeout: 15 * time.Second,
		},
		History: HistoryConfig{
			File: "data/discharge_history.csv",
		},
		Notify: NotifyConfig{
			LineMode:       LineModeBroadcast,
			LineAPIBase:    "https://api.line.me",
			Timeout:        10 * time.Second,
			MaxRetries:     3,
			InitialBackoff: time.Second,
		},
		Timezone: DefaultTimezone,
		Schedule: DefaultSchedule,
	}
}

// Load builds the configuration: defaults, then .env, then the YAML file named by
// CONFIG_FILE, then environment variables. The result is validated.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Could not read .env file: %v", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	log.Printf("Loaded configuration from %s", path)
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Gauge.URL, "GAUGE_URL")
	setString(&c.Gauge.Station, "GAUGE_STATION")
	setString(&c.Gauge.ChromePath, "CHROME_PATH")
	setString(&c.Discharge.URL, "DISCHARGE_URL")
	setString(&c.Discharge.StationKey, "DISCHARGE_STATION_KEY")
	setString(&c.History.File, "HISTORY_FILE")
	setString(&c.Timezone, "TIMEZONE")
	setString(&c.Notify.LineToken, "LINE_CHANNEL_ACCESS_TOKEN")
	setString(&c.Notify.LineMode, "LINE_MODE")
	setString(&c.Notify.LineTo, "LINE_TO")
	setString(&c.Notify.LineAPIBase, "LINE_API_BASE")
	setString(&c.Notify.WebhookURL, "WEBHOOK_URL")
	setString(&c.Notify.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Notify.TelegramAPIEndpoint, "TELEGRAM_API_ENDPOINT")
	setString(&c.PushgatewayURL, "PUSHGATEWAY_URL")
	setString(&c.Schedule, "SCHEDULE")

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&c.Gauge.Timeout, "GAUGE_TIMEOUT"},
		{&c.Gauge.RetryPause, "GAUGE_RETRY_PAUSE"},
		{&c.Gauge.SettleDelay, "GAUGE_SETTLE_DELAY"},
		{&c.Discharge.Timeout, "DISCHARGE_TIMEOUT"},
		{&c.Notify.Timeout, "NOTIFY_TIMEOUT"},
		{&c.Notify.InitialBackoff, "NOTIFY_INITIAL_BACKOFF"},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}

	if err := setInt(&c.Gauge.MaxRetries, "GAUGE_MAX_RETRIES"); err != nil {
		return err
	}
	if err := setInt(&c.Gauge.LevelCell, "GAUGE_LEVEL_CELL"); err != nil {
		return err
	}
	if err := setInt(&c.Notify.MaxRetries, "NOTIFY_MAX_RETRIES"); err != nil {
		return err
	}

	if s := os.Getenv("BANK_LEVEL"); s != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid BANK_LEVEL %q: %w", s, err)
		}
		c.Gauge.BankLevel = v
	}
	if s := os.Getenv("TELEGRAM_CHAT_ID"); s != "" {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", s, err)
		}
		c.Notify.TelegramChatID = v
	}
	if s := os.Getenv("HISTORY_YEARS"); s != "" {
		years, err := ParseYears(s)
		if err != nil {
			return err
		}
		c.History.Years = years
	}
	return nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	if c.Gauge.MaxRetries < 0 {
		return errors.New("GAUGE_MAX_RETRIES must not be negative")
	}
	if c.Gauge.LevelCell < 0 {
		return errors.New("GAUGE_LEVEL_CELL must not be negative")
	}
	if c.Notify.MaxRetries < 0 {
		return errors.New("NOTIFY_MAX_RETRIES must not be negative")
	}
	if c.Gauge.Timeout <= 0 || c.Discharge.Timeout <= 0 || c.Notify.Timeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Gauge.RetryPause < 0 || c.Gauge.SettleDelay < 0 || c.Notify.InitialBackoff < 0 {
		return errors.New("pauses and backoffs must not be negative")
	}
	switch c.Notify.LineMode {
	case LineModeBroadcast:
	case LineModePush:
		if c.Notify.LineToken != "" && c.Notify.LineTo == "" {
			return errors.New("LINE_MODE is push but LINE_TO is not set")
		}
	default:
		return fmt.Errorf("unknown LINE_MODE %q", c.Notify.LineMode)
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == 0 {
		return errors.New("TELEGRAM_BOT_TOKEN is set but TELEGRAM_CHAT_ID is not")
	}
	if e := c.Notify.TelegramAPIEndpoint; e != "" && strings.Count(e, "%s") != 2 {
		return fmt.Errorf("TELEGRAM_API_ENDPOINT %q must contain two %%s placeholders", e)
	}
	return nil
}

// Location resolves Timezone, falling back to a fixed UTC+7 zone when the tz database is unavailable
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Could not load timezone %q, using UTC+7: %v", c.Timezone, err)
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// ParseYears parses a comma-separated list of Buddhist years, keeping order
func ParseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q in HISTORY_YEARS: %w", part, err)
		}
		years = append(years, y)
	}
	return years, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	*dst = v
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	*dst = d
	return nil
}
