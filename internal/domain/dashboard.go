package domain

// Dashboard is the admin landing page summary.
type Dashboard struct {
	ProductCount   int       `json:"product_count"`
	CategoryCount  int       `json:"category_count"`
	UnreadContacts int       `json:"unread_contacts"`
	FeaturedCount  int       `json:"featured_count"`
	FeaturedCap    int       `json:"featured_cap"`
	RecentProducts []Product `json:"recent_products"`
	RecentContacts []Contact `json:"recent_contacts"`
}

// DashboardRecentLimit bounds the recent lists on the dashboard.
const DashboardRecentLimit = 5
