package postgres

import (
	"context"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/pagination"
)

const contactColumns = `id, name, email, phone, subject, message, is_read, created_at`

// ContactRepository implements repository.ContactRepository using PostgreSQL.
type ContactRepository struct {
	pool database.DBTX
}

// NewContactRepository creates a new PostgreSQL-backed contact repository.
func NewContactRepository(pool database.DBTX) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// Create inserts a new contact message.
func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	query := `
		INSERT INTO contacts (id, name, email, phone, subject, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.Subject, c.Message, c.IsRead, c.CreatedAt,
	)
	if err != nil {
		return apperrors.StorageFailure("insert contact", err)
	}
	return nil
}

// List returns one page of contacts, newest first, with the total count.
func (r *ContactRepository) List(ctx context.Context, params pagination.Params) ([]domain.Contact, int, error) {
	query := `SELECT ` + contactColumns + `, count(*) OVER() AS total_count
		FROM contacts
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, apperrors.StorageFailure("list contacts", err)
	}
	defer rows.Close()

	var (
		contacts   = []domain.Contact{}
		totalCount int
	)
	for rows.Next() {
		c, err := scanContact(rows, &totalCount)
		if err != nil {
			return nil, 0, apperrors.StorageFailure("scan contact row", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.StorageFailure("iterate contact rows", err)
	}

	if len(contacts) == 0 && params.Offset > 0 {
		if totalCount, err = countRows(ctx, r.pool, "contacts", ""); err != nil {
			return nil, 0, apperrors.StorageFailure("count contacts", err)
		}
	}
	return contacts, totalCount, nil
}

// GetByID retrieves a contact by its ID.
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("contact", id)
		}
		return nil, apperrors.StorageFailure("get contact", err)
	}
	return c, nil
}

// MarkRead flags one contact as read.
func (r *ContactRepository) MarkRead(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE contacts SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return apperrors.StorageFailure("mark contact read", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("contact", id)
	}
	return nil
}

// MarkAllRead flags every unread contact and returns how many changed.
func (r *ContactRepository) MarkAllRead(ctx context.Context) (int, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE contacts SET is_read = TRUE WHERE NOT is_read`)
	if err != nil {
		return 0, apperrors.StorageFailure("mark all contacts read", err)
	}
	return int(ct.RowsAffected()), nil
}

// Delete removes a contact.
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return apperrors.StorageFailure("delete contact", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("contact", id)
	}
	return nil
}

// CountUnread returns the number of unread contacts.
func (r *ContactRepository) CountUnread(ctx context.Context) (int, error) {
	n, err := countRows(ctx, r.pool, "contacts", "WHERE NOT is_read")
	if err != nil {
		return 0, apperrors.StorageFailure("count unread contacts", err)
	}
	return n, nil
}

// RecentUnread returns the newest unread contacts.
func (r *ContactRepository) RecentUnread(ctx context.Context, limit int) ([]domain.Contact, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+contactColumns+`
		FROM contacts
		WHERE NOT is_read
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.StorageFailure("list unread contacts", err)
	}
	defer rows.Close()

	contacts := []domain.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, apperrors.StorageFailure("scan contact row", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageFailure("iterate contact rows", err)
	}
	return contacts, nil
}

func scanContact(row rowScanner, extra ...any) (*domain.Contact, error) {
	var c domain.Contact
	dest := []any{&c.ID, &c.Name, &c.Email, &c.Phone, &c.Subject, &c.Message, &c.IsRead, &c.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}
