package memory

import (
	"context"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/pagination"
)

// ContactRepository implements repository.ContactRepository in memory.
type ContactRepository struct {
	db *DB
}

func (r *ContactRepository) Create(_ context.Context, c *domain.Contact) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.contacts[c.ID] = *c
	return nil
}

func (r *ContactRepository) List(_ context.Context, params pagination.Params) ([]domain.Contact, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	all := r.db.newestContacts(false)
	return page(all, params.Offset, params.PerPage), len(all), nil
}

func (r *ContactRepository) GetByID(_ context.Context, id string) (*domain.Contact, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.contacts[id]
	if !ok {
		return nil, apperrors.NotFound("contact", id)
	}
	return &c, nil
}

func (r *ContactRepository) MarkRead(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.contacts[id]
	if !ok {
		return apperrors.NotFound("contact", id)
	}
	c.IsRead = true
	r.db.contacts[id] = c
	return nil
}

func (r *ContactRepository) MarkAllRead(_ context.Context) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n := 0
	for id, c := range r.db.contacts {
		if !c.IsRead {
			c.IsRead = true
			r.db.contacts[id] = c
			n++
		}
	}
	return n, nil
}

func (r *ContactRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.contacts[id]; !ok {
		return apperrors.NotFound("contact", id)
	}
	delete(r.db.contacts, id)
	return nil
}

func (r *ContactRepository) CountUnread(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.newestContacts(true)), nil
}

func (r *ContactRepository) RecentUnread(_ context.Context, limit int) ([]domain.Contact, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return page(r.db.newestContacts(true), 0, limit), nil
}

// newestContacts requires mu.
func (db *DB) newestContacts(unreadOnly bool) []domain.Contact {
	contacts := []domain.Contact{}
	for _, c := range db.contacts {
		if unreadOnly && c.IsRead {
			continue
		}
		contacts = append(contacts, c)
	}
	sortNewestFirst(contacts, func(c domain.Contact) (int64, string) {
		return c.CreatedAt.UnixNano(), c.ID
	})
	return contacts
}
