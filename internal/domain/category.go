package domain

import "time"

// Category groups products. Names are unique and compared case-sensitively.
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultCategories are seeded by catalogctl init-db.
var DefaultCategories = []string{
	"光学测量仪器",
	"坐标测量仪",
	"激光干涉仪",
	"三坐标测量机",
	"影像测量仪",
}
