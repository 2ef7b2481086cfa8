// Package secrets resolves the two credentials this job needs: the feed API
// key and the SMTP password. Lookup order is OS keyring first, environment
// variable second, so cron deployments without a keyring still work.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"cctnotify/internal/config"
)

const (
	// KeyringService groups this app's secrets in the OS keychain.
	KeyringService = "cctnotify"

	EnvAPIKey   = "HAPPEO_API_KEY"
	EnvSMTPPass = "SMTP_PASS"
)

// SMTPAccount is the keyring account name for the SMTP password.
func SMTPAccount(cfg config.Config) string {
	return fmt.Sprintf("cctnotify:smtp:%s@%s", cfg.SMTP.Sender, cfg.SMTP.Host)
}

// FeedAccount is the keyring account name for the feed API key.
func FeedAccount(cfg config.Config) string {
	return fmt.Sprintf("cctnotify:feed:%s", cfg.Feed.BaseURL)
}

func get(account, envVar string) string {
	if strings.TrimSpace(account) != "" {
		if v, err := keyring.Get(KeyringService, account); err == nil && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return os.Getenv(envVar)
}

// Apply fills in cfg's credential fields. The SMTP password may legitimately
// be empty (open relay on port 25); the feed API key may not.
func Apply(cfg *config.Config) error {
	cfg.SMTP.Password = get(SMTPAccount(*cfg), EnvSMTPPass)

	cfg.Feed.APIKey = get(FeedAccount(*cfg), EnvAPIKey)
	if cfg.Feed.APIKey == "" {
		return fmt.Errorf("feed API key not found (set it in the keychain or via %s)", EnvAPIKey)
	}
	return nil
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
