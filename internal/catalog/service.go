package catalog

import (
	"context"
	"strings"

	"github.com/noah-isme/jwfoods/internal/common"
)

const (
	// DefaultVisible is the number of products shown before "load more".
	DefaultVisible = 8
	// LoadMoreStep is how many extra products each "load more" reveals.
	LoadMoreStep = 3
	// AllCategories disables category filtering.
	AllCategories = "all"
)

// Product is a catalog entry.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

// ListResult is one page of a filtered listing.
type ListResult struct {
	Items    []Product `json:"items"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	HasMore  bool      `json:"hasMore"`
	NextStep int       `json:"nextLimit,omitempty"`
}

// Service serves the fixed product catalog.
type Service struct {
	products []Product
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Products []Product
}

// NewService constructs a Service. Without products the built-in catalog is used.
func NewService(cfg ServiceConfig) *Service {
	products := cfg.Products
	if len(products) == 0 {
		products = DefaultProducts()
	}
	return &Service{products: append([]Product(nil), products...)}
}

// DefaultProducts returns the storefront catalog.
func DefaultProducts() []Product {
	return []Product{
		{ID: 1, Name: "Family Dinner Package", Price: 45.99, Category: "Meals", Description: "Complete dinner for a family of four with entrees, sides, and dessert."},
		{ID: 2, Name: "Gourmet Sandwich Platter", Price: 32.50, Category: "Platters", Description: "Assorted sandwiches for gatherings and meetings."},
		{ID: 3, Name: "Premium Dessert Box", Price: 24.99, Category: "Desserts", Description: "Selection of our finest desserts and pastries."},
		{ID: 4, Name: "Fresh Salad Bowl", Price: 18.99, Category: "Healthy", Description: "Healthy salad with seasonal ingredients and dressing."},
		{ID: 5, Name: "Breakfast Combo", Price: 21.50, Category: "Meals", Description: "Includes eggs, toast, fruit, and a beverage."},
		{ID: 6, Name: "Protein Pack", Price: 120.00, Category: "Meats", Description: "Our best-selling variety pack of meats."},
		{ID: 7, Name: "Charcuterie Board", Price: 27.00, Category: "Platters", Description: "An elegant assortment of cured meats, cheeses, fresh fruit, and gourmet crackers."},
		{ID: 8, Name: "Kids Meal Combo", Price: 12.99, Category: "Meals", Description: "Perfectly portioned meals for children."},
	}
}

// List filters by category (case-insensitive, "all" or empty for everything) and returns
// the first limit matches.
func (s *Service) List(_ context.Context, category string, limit int) ListResult {
	if limit <= 0 {
		limit = DefaultVisible
	}
	category = strings.ToLower(strings.TrimSpace(category))
	filtered := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if category == "" || category == AllCategories || strings.ToLower(p.Category) == category {
			filtered = append(filtered, p)
		}
	}
	res := ListResult{Total: len(filtered), Limit: limit}
	if limit < len(filtered) {
		res.Items = filtered[:limit]
		res.HasMore = true
		res.NextStep = limit + LoadMoreStep
	} else {
		res.Items = filtered
	}
	return res
}

// Categories returns "all" followed by the distinct lowercased categories in catalog order.
func (s *Service) Categories(context.Context) []string {
	seen := map[string]bool{AllCategories: true}
	out := []string{AllCategories}
	for _, p := range s.products {
		c := strings.ToLower(p.Category)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Get returns the product with id.
func (s *Service) Get(_ context.Context, id int) (Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, common.NewNotFoundError("product not found")
}
