package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy with defaults applied,
// plus errors for missing required collaborator parameters and warnings for
// suspicious values. Errors here abort the run before anything executes.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			if seen[x] {
				continue
			}
			seen[x] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Feed.Channels = trimList(out.Feed.Channels)
	out.Feed.BaseURL = strings.TrimSpace(out.Feed.BaseURL)
	out.Directory.Path = strings.TrimSpace(out.Directory.Path)
	out.SMTP.Host = strings.TrimSpace(out.SMTP.Host)
	out.SMTP.Sender = strings.TrimSpace(out.SMTP.Sender)

	// ---- Defaults ----

	if out.App.DataDir == "" {
		out.App.DataDir = "."
	}
	if out.App.LogLevel == "" {
		out.App.LogLevel = "info"
	}
	if out.Notify.WindowHours == 0 {
		out.Notify.WindowHours = 24
	}
	if out.Notify.SubjectPrefix == "" {
		out.Notify.SubjectPrefix = "Novedades Convenio"
	}
	if out.Feed.Label == "" {
		out.Feed.Label = "CCT"
	}
	if out.Feed.Amount == 0 {
		out.Feed.Amount = 50
	}
	if out.SMTP.Port == 0 {
		out.SMTP.Port = 25
	}

	// ---- Validation rules ----

	if out.Notify.WindowHours < 0 {
		res.addErr("notify.window_hours must be > 0")
	} else if out.Notify.WindowHours > 24*14 {
		res.addWarn("notify.window_hours is very large (%d); every run re-sends everything inside the window.", out.Notify.WindowHours)
	}

	if out.Feed.BaseURL == "" {
		res.addErr("feed.base_url is required")
	}
	if len(out.Feed.Channels) == 0 {
		res.addErr("feed.channels must list at least one channel id")
	}
	if out.Feed.Amount < 0 {
		res.addErr("feed.amount must be > 0")
	} else if out.Feed.Amount > 200 {
		res.addWarn("feed.amount is high (%d); the feed API may clamp it.", out.Feed.Amount)
	}

	if out.Directory.Path == "" {
		res.addErr("directory.path is required")
	}

	if out.SMTP.Host == "" {
		res.addErr("smtp.host is required")
	}
	if out.SMTP.Sender == "" {
		res.addErr("smtp.sender is required")
	}
	if out.SMTP.TemplatePath == "" {
		res.addErr("smtp.template_path is required")
	}

	return out, res
}
