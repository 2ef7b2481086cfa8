package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir  string `yaml:"data_dir"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Notify struct {
		WindowHours   int    `yaml:"window_hours"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"notify"`

	Feed struct {
		BaseURL    string   `yaml:"base_url"`
		Channels   []string `yaml:"channels"`
		Label      string   `yaml:"label"`
		Amount     int      `yaml:"amount"`
		RatePerSec float64  `yaml:"rate_per_sec"`
		Burst      int      `yaml:"burst"`

		// APIKey is never read from yaml; it comes from the keyring or the
		// HAPPEO_API_KEY environment variable (see internal/secrets).
		APIKey string `yaml:"-"`
	} `yaml:"feed"`

	Directory struct {
		Path string `yaml:"path"`
	} `yaml:"directory"`

	SMTP struct {
		Host         string  `yaml:"host"`
		Port         int     `yaml:"port"`
		Sender       string  `yaml:"sender"`
		TemplatePath string  `yaml:"template_path"`
		RatePerSec   float64 `yaml:"rate_per_sec"`

		// Password comes from the keyring or SMTP_PASS (see internal/secrets).
		Password string `yaml:"-"`
	} `yaml:"smtp"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
