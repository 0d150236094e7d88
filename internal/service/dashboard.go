package service

import (
	"context"
	"fmt"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
)

// DashboardService assembles the admin overview.
type DashboardService struct {
	store repository.Store
	slots *featured.Allocator
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(store repository.Store, slots *featured.Allocator) *DashboardService {
	return &DashboardService{store: store, slots: slots}
}

// Dashboard returns the catalog counters with the most recent products and
// unread contact messages.
func (s *DashboardService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	d := &domain.Dashboard{FeaturedCap: s.slots.Cap()}

	var err error
	if d.ProductCount, err = s.store.Products.Count(ctx); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if d.CategoryCount, err = s.store.Categories.Count(ctx); err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	if d.UnreadContacts, err = s.store.Contacts.CountUnread(ctx); err != nil {
		return nil, fmt.Errorf("count unread contacts: %w", err)
	}
	if d.FeaturedCount, err = s.slots.Count(ctx); err != nil {
		return nil, fmt.Errorf("count featured products: %w", err)
	}

	if d.RecentProducts, _, err = s.store.Products.List(ctx, repository.ProductFilter{
		PerPage: domain.DashboardRecentLimit,
	}); err != nil {
		return nil, fmt.Errorf("list recent products: %w", err)
	}
	if d.RecentContacts, err = s.store.Contacts.RecentUnread(ctx, domain.DashboardRecentLimit); err != nil {
		return nil, fmt.Errorf("list recent contacts: %w", err)
	}
	return d, nil
}
