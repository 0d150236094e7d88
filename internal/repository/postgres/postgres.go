// Package postgres implements the catalog repositories on PostgreSQL with
// pgx. Attribute columns go through the codec and image payloads live in
// BYTEA columns of the owning row.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
)

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s as a literal substring.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// nullText maps "" to NULL.
func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// imageArgs returns the (data, filename, mime_type) column values of ref.
// The zero Ref is stored as three NULLs.
func imageArgs(ref asset.Ref) (any, any, any) {
	if ref.IsZero() {
		return nil, nil, nil
	}
	return ref.Data, ref.Filename, ref.MimeType
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// countRows runs a COUNT(*) over table with an optional WHERE clause. It is
// used when a page past the end returns no rows and so no window count.
func countRows(ctx context.Context, db database.DBTX, table, where string, args ...any) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, where)
	var n int
	if err := db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
