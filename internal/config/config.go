// Package config loads participant and rendezvous settings from an optional
// YAML file, a .env file and the environment, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Participant ParticipantConfig `yaml:"participant" envPrefix:"HEXMAP_"`
	Rendezvous  RendezvousConfig  `yaml:"rendezvous" envPrefix:"HEXMAP_RENDEZVOUS_"`
	Narrative   NarrativeConfig   `yaml:"narrative" envPrefix:"HEXMAP_NARRATIVE_"`
	Log         LogConfig         `yaml:"log" envPrefix:"HEXMAP_LOG_"`
}

type ParticipantConfig struct {
	Username      string `yaml:"username" env:"USERNAME"`
	ListenAddr    string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	AdvertiseAddr string `yaml:"advertise_addr" env:"ADVERTISE_ADDR"` // defaults to ListenAddr
	RendezvousURL string `yaml:"rendezvous_url" env:"RENDEZVOUS_URL"`

	DiceDisplay time.Duration `yaml:"dice_display" env:"DICE_DISPLAY"`
	SendTimeout time.Duration `yaml:"send_timeout" env:"SEND_TIMEOUT"`
	OutboxSize  int           `yaml:"outbox_size" env:"OUTBOX_SIZE"`

	MaxImageDimension int `yaml:"max_image_dimension" env:"MAX_IMAGE_DIMENSION"`
}

type RendezvousConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

type NarrativeConfig struct {
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Model   string        `yaml:"model" env:"MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	Dev   bool   `yaml:"dev" env:"DEV"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Participant: ParticipantConfig{
			ListenAddr:        ":7070",
			RendezvousURL:     "http://localhost:8080",
			DiceDisplay:       4 * time.Second,
			SendTimeout:       3 * time.Second,
			OutboxSize:        64,
			MaxImageDimension: 2000,
		},
		Rendezvous: RendezvousConfig{Addr: ":8080"},
		Narrative: NarrativeConfig{
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (skipped when empty), then .env, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults repairs zero values a file or the environment may have set.
func (c *Config) fillDefaults() {
	d := Default()
	p := &c.Participant
	if p.ListenAddr == "" {
		p.ListenAddr = d.Participant.ListenAddr
	}
	if p.AdvertiseAddr == "" {
		p.AdvertiseAddr = p.ListenAddr
	}
	if p.RendezvousURL == "" {
		p.RendezvousURL = d.Participant.RendezvousURL
	}
	if p.DiceDisplay <= 0 {
		p.DiceDisplay = d.Participant.DiceDisplay
	}
	if p.SendTimeout <= 0 {
		p.SendTimeout = d.Participant.SendTimeout
	}
	if p.OutboxSize <= 0 {
		p.OutboxSize = d.Participant.OutboxSize
	}
	if p.MaxImageDimension <= 0 {
		p.MaxImageDimension = d.Participant.MaxImageDimension
	}
	if c.Rendezvous.Addr == "" {
		c.Rendezvous.Addr = d.Rendezvous.Addr
	}
	if c.Narrative.Model == "" {
		c.Narrative.Model = d.Narrative.Model
	}
	if c.Narrative.Timeout <= 0 {
		c.Narrative.Timeout = d.Narrative.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}
