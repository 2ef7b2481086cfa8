// Package directory resolves agreement codes to active employees from the
// relational HR database. Query failures fail open to an empty result; the
// pipeline reads that as "no recipients", it never aborts on a flaky database.
package directory

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"cctnotify/internal/domain"
)

type Directory struct {
	db  *sql.DB
	log *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Directory {
	return &Directory{db: db, log: logger}
}

// FindByCodes returns the active employees whose agreement code is one of the
// given codes, in database order. Blank codes are dropped; an empty input
// short-circuits to an empty result without touching the database.
func (d *Directory) FindByCodes(ctx context.Context, codes []string) ([]domain.Employee, error) {
	cleaned := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cleaned)), ",")
	query := `
SELECT DISTINCT TRIM(email), TRIM(name), TRIM(agreement_code)
FROM employees
WHERE TRIM(email) <> ''
  AND status = 'A'
  AND TRIM(agreement_code) IN (` + placeholders + `);`

	args := make([]any, len(cleaned))
	for i, c := range cleaned {
		args[i] = c
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		d.log.Error("directory query failed", "error", err)
		return nil, nil
	}
	defer rows.Close()

	var out []domain.Employee
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.Email, &e.Name, &e.AgreementCode); err != nil {
			d.log.Error("directory row scan failed", "error", err)
			return nil, nil
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		d.log.Error("directory rows failed", "error", err)
		return nil, nil
	}
	return out, nil
}
