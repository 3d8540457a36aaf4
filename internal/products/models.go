package products

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryElectronics       Category = "electronics"
	CategoryClothing          Category = "clothing"
	CategoryAccessories       Category = "accessories"
	CategoryHome              Category = "home"
	CategoryBooks             Category = "books"
	CategoryToys              Category = "toys"
	CategoryAudio             Category = "audio"
	CategoryVideo             Category = "video"
	CategoryFurniture         Category = "furniture"
	CategoryFitness           Category = "fitness"
	CategorySports            Category = "sports"
	CategoryBags              Category = "bags"
	CategoryMobileAccessories Category = "mobile accessories"
	CategoryOfficeSupplies    Category = "office supplies"
	CategoryHealth            Category = "health"
	CategoryBeauty            Category = "beauty"
	CategoryGrocery           Category = "grocery"
	CategoryPetSupplies       Category = "pet supplies"
	CategoryAutomotive        Category = "automotive"
	CategoryTools             Category = "tools"
)

var categories = []Category{
	CategoryElectronics, CategoryClothing, CategoryAccessories, CategoryHome, CategoryBooks,
	CategoryToys, CategoryAudio, CategoryVideo, CategoryFurniture, CategoryFitness,
	CategorySports, CategoryBags, CategoryMobileAccessories, CategoryOfficeSupplies, CategoryHealth,
	CategoryBeauty, CategoryGrocery, CategoryPetSupplies, CategoryAutomotive, CategoryTools,
}

// ParseCategory is case-insensitive. An empty string means electronics.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CategoryElectronics, nil
	}
	for _, known := range categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Product represents a catalog entry. StaffID is the staff member who owns it.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    Category  `json:"category"`
	StaffID     string    `json:"staffId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Filter narrows ListProducts. Zero values mean no filter.
type Filter struct {
	Name     string
	Category Category
	Limit    int
	Offset   int
}

// NewProduct is a staff member's new catalog entry.
type NewProduct struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Category    string  `json:"category"`
}

// UpdateProduct changes only the fields that are set.
type UpdateProduct struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Category    *string  `json:"category"`
}
