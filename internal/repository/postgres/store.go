package postgres

import (
	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
)

// NewStore wires every repository to pool.
func NewStore(pool database.DBTX, slots *featured.Allocator, c *codec.Codec) repository.Store {
	return repository.Store{
		Categories: NewCategoryRepository(pool),
		Products:   NewProductRepository(pool, slots, c),
		Images:     NewImageRepository(pool),
		Contacts:   NewContactRepository(pool),
		Pages:      NewPageContentRepository(pool),
	}
}
