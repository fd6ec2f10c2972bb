package model

// CatalogItem is one reward the roulette can land on.
type CatalogItem struct {
	ID        int64   `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Price     int64   `json:"price" yaml:"price"`
	Weight    float64 `json:"chance" yaml:"chance"`
	ImagePath string  `json:"-" yaml:"-"`
}
