package models

// Service is one catalog offering. Name embeds the price, e.g. "Classic Haircut - R250".
type Service struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

var serviceCatalog = []string{
	"Classic Haircut - R250",
	"Beard Trim & Shaping - R150",
	"Hot Towel Shave - R200",
	"Haircut & Beard Combo - R350",
	"Kids Haircut - R180",
	"Hair Coloring - R400",
	"Scalp Treatment - R300",
	"Deluxe Grooming Package - R600",
}

// Catalog returns the service labels in display order.
func Catalog() []string {
	return append([]string(nil), serviceCatalog...)
}

// IsCatalogService reports whether name is exactly one of the catalog labels.
func IsCatalogService(name string) bool {
	for _, s := range serviceCatalog {
		if s == name {
			return true
		}
	}
	return false
}
