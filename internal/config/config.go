package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trivia-party-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Game struct {
		MaxPlayers        int    `yaml:"maxPlayers"`
		QuestionTimeLimit int    `yaml:"questionTimeLimit"`
		TotalQuestions    int    `yaml:"totalQuestions"`
		TimeBonus         *bool  `yaml:"timeBonus"`
		LeadIn            string `yaml:"leadIn"`
		RevealDelay       string `yaml:"revealDelay"`
		RoomRetention     string `yaml:"roomRetention"`
		ReclaimInterval   string `yaml:"reclaimInterval"`
	} `yaml:"game"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// GameSettings applies defaults for anything the file leaves unset.
func (c Config) GameSettings() domain.Settings {
	settings := domain.Settings{
		MaxParticipants:          20,
		QuestionTimeLimitSeconds: 30,
		TotalQuestions:           10,
		TimeBonus:                true,
	}
	if c.Game.MaxPlayers > 0 {
		settings.MaxParticipants = c.Game.MaxPlayers
	}
	if c.Game.QuestionTimeLimit > 0 {
		settings.QuestionTimeLimitSeconds = c.Game.QuestionTimeLimit
	}
	if c.Game.TotalQuestions > 0 {
		settings.TotalQuestions = c.Game.TotalQuestions
	}
	if c.Game.TimeBonus != nil {
		settings.TimeBonus = *c.Game.TimeBonus
	}
	return settings
}
