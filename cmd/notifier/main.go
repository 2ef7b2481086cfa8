// cctnotify scans the intranet feed for recent posts tagged with agreement
// codes and emails each covered employee a digest. One invocation is one
// pass: fetch, resolve, fan out, exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"cctnotify/internal/config"
	"cctnotify/internal/directory"
	"cctnotify/internal/domain"
	"cctnotify/internal/feed"
	"cctnotify/internal/mail"
	"cctnotify/internal/notify"
	"cctnotify/internal/secrets"
)

func main() {
	var (
		cfgPath     = flag.String("config", "config.yml", "path to the yaml config file")
		window      = flag.Int("window", 0, "override the lookback window in hours")
		initDB      = flag.Bool("init-db", false, "create the employee schema and exit")
		dryRun      = flag.Bool("dry-run", false, "log digests instead of sending mail")
		setSMTPPass = flag.String("set-smtp-pass", "", "store the SMTP password in the OS keychain and exit")
		setAPIKey   = flag.String("set-api-key", "", "store the feed API key in the OS keychain and exit")
	)
	flag.Parse()

	if err := run(*cfgPath, *window, *initDB, *dryRun, *setSMTPPass, *setAPIKey); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath string, window int, initDB, dryRun bool, setSMTPPass, setAPIKey string) error {
	raw, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	cfg, validation := config.NormalizeAndValidate(raw)

	logger := newLogger(cfg.App.LogLevel)
	for _, w := range validation.Warnings {
		logger.Warn(w)
	}
	if !validation.OK() {
		for _, e := range validation.Errors {
			logger.Error(e)
		}
		return fmt.Errorf("invalid configuration")
	}

	// keychain verbs run before anything touches the network
	if setSMTPPass != "" {
		return secrets.Set(secrets.SMTPAccount(cfg), setSMTPPass)
	}
	if setAPIKey != "" {
		return secrets.Set(secrets.FeedAccount(cfg), setAPIKey)
	}

	if initDB {
		db, err := directory.Open(cfg.Directory.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		return directory.Migrate(db)
	}

	// A run lock so an overlapping cron invocation exits instead of
	// double-sending the same window.
	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.App.DataDir, "notifier.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("run lock: %w", err)
	}
	if !locked {
		logger.Info("another pass is already running, exiting")
		return nil
	}
	defer func() { _ = lock.Unlock() }()

	if err := secrets.Apply(&cfg); err != nil {
		return err
	}

	source, err := feed.New(feed.Config{
		BaseURL:    cfg.Feed.BaseURL,
		APIKey:     cfg.Feed.APIKey,
		Channels:   cfg.Feed.Channels,
		Label:      cfg.Feed.Label,
		Amount:     cfg.Feed.Amount,
		RatePerSec: cfg.Feed.RatePerSec,
		Burst:      cfg.Feed.Burst,
	}, logger)
	if err != nil {
		return err
	}

	db, err := directory.Open(cfg.Directory.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	var notifier domain.Notifier
	notifier, err = mail.New(mail.Config{
		Host:         cfg.SMTP.Host,
		Port:         cfg.SMTP.Port,
		Sender:       cfg.SMTP.Sender,
		Password:     cfg.SMTP.Password,
		TemplatePath: cfg.SMTP.TemplatePath,
		RatePerSec:   cfg.SMTP.RatePerSec,
	}, logger)
	if err != nil {
		return err
	}
	if dryRun {
		notifier = dryRunNotifier{log: logger}
	}

	if window <= 0 {
		window = cfg.Notify.WindowHours
	}

	service := notify.New(source, directory.New(db, logger), notifier, cfg.Notify.SubjectPrefix, logger)
	if err := service.Run(context.Background(), window); err != nil {
		return err
	}
	logger.Info("run completed")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// dryRunNotifier logs what would have been sent.
type dryRunNotifier struct {
	log *slog.Logger
}

func (n dryRunNotifier) Send(_ context.Context, toEmail, subject string, digest domain.Digest) error {
	n.log.Info("dry run: would send digest", "to", toEmail, "subject", subject, "posts", len(digest.Posts))
	return nil
}
