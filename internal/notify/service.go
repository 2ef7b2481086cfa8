// Package notify implements the digest pipeline: fetch recent posts, derive
// the distinct agreement-code set, resolve recipients, and fan out one digest
// per recipient. One call to Run is one complete pass.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cctnotify/internal/domain"
)

// Service coordinates the three collaborators. It holds no state between
// passes and owns no connections.
type Service struct {
	posts      domain.PostSource
	recipients domain.RecipientDirectory
	notifier   domain.Notifier

	// subjectLabel prefixes the agreement code in the mail subject.
	subjectLabel string

	log *slog.Logger
}

func New(posts domain.PostSource, recipients domain.RecipientDirectory, notifier domain.Notifier, subjectLabel string, logger *slog.Logger) *Service {
	return &Service{
		posts:        posts,
		recipients:   recipients,
		notifier:     notifier,
		subjectLabel: subjectLabel,
		log:          logger,
	}
}

// Run executes one pass. Empty results at any stage end the pass early; that
// is the normal "nothing to do" outcome, not an error. An error return means
// an unexpected fault escaped a collaborator, which the caller should treat
// as fatal for the run.
func (s *Service) Run(ctx context.Context, windowHours int) error {
	s.log.Info("looking for recent posts", "window_hours", windowHours)

	posts, err := s.posts.RecentPosts(ctx, windowHours)
	if err != nil {
		return fmt.Errorf("fetch recent posts: %w", err)
	}
	if len(posts) == 0 {
		s.log.Info("no new posts found")
		return nil
	}
	s.log.Info("posts found", "count", len(posts))

	// The source only returns posts that carried at least one code, but the
	// union is recomputed here rather than assumed.
	codes := distinctCodes(posts)
	if len(codes) == 0 {
		s.log.Info("posts contain no agreement codes")
		return nil
	}

	s.log.Info("resolving recipients", "codes", codes)
	employees, err := s.recipients.FindByCodes(ctx, codes)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	if len(employees) == 0 {
		s.log.Info("no active employees for these codes")
		return nil
	}
	s.log.Info("recipients found", "count", len(employees))

	// Employees are processed in directory order. One row per membership:
	// a person under two matching codes gets two mails.
	for _, emp := range employees {
		digest := buildDigest(emp, posts)
		if len(digest.Posts) == 0 {
			continue
		}

		subject := fmt.Sprintf("%s %s", s.subjectLabel, emp.AgreementCode)
		if err := s.notifier.Send(ctx, emp.Email, subject, digest); err != nil {
			return fmt.Errorf("send to %s: %w", emp.Email, err)
		}
	}

	s.log.Info("notification pass finished")
	return nil
}

// distinctCodes returns the union of all codes across posts, sorted for
// stable logs and queries.
func distinctCodes(posts []domain.Post) []string {
	seen := make(map[string]struct{})
	for _, p := range posts {
		for _, c := range p.Codes {
			seen[c] = struct{}{}
		}
	}
	codes := make([]string, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// buildDigest filters posts down to those mentioning the employee's code.
func buildDigest(emp domain.Employee, posts []domain.Post) domain.Digest {
	d := domain.Digest{
		Name:          emp.Name,
		AgreementCode: emp.AgreementCode,
	}
	for _, p := range posts {
		if p.HasCode(emp.AgreementCode) {
			d.Posts = append(d.Posts, domain.DigestPost{ID: p.ID, Title: p.Title})
		}
	}
	return d
}
