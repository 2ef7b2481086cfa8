package domain

import "context"

// PostSource returns recent posts that mention at least one agreement code.
//
// Implementations are expected to fail open: a transport or decode failure is
// logged by the adapter and surfaces here as an empty list, not an error. An
// error return is reserved for genuinely unexpected faults.
type PostSource interface {
	// RecentPosts returns posts published within the last windowHours hours.
	RecentPosts(ctx context.Context, windowHours int) ([]Post, error)
}

// RecipientDirectory resolves agreement codes to the active employees covered
// by them. Same fail-open contract as PostSource: query failures degrade to an
// empty slice.
type RecipientDirectory interface {
	FindByCodes(ctx context.Context, codes []string) ([]Employee, error)
}

// Notifier delivers one digest message to one recipient. Implementations log
// their own delivery failures and return nil so that one bad recipient never
// interrupts the fan-out.
type Notifier interface {
	Send(ctx context.Context, toEmail, subject string, digest Digest) error
}
