// Package catalog loads and validates the reward table the roulette draws from.
package catalog

import (
	"fmt"
	"sort"

	"roulette-bot/internal/model"
)

// Catalog is the immutable, validated list of reward items.
type Catalog struct {
	items []model.CatalogItem
	byID  map[int64]model.CatalogItem
}

// New validates items and builds a catalog. Items keep their source order.
func New(source string, items []model.CatalogItem) (*Catalog, error) {
	if len(items) == 0 {
		return nil, &model.ConfigurationError{Source: source, Reason: "catalog is empty"}
	}

	byID := make(map[int64]model.CatalogItem, len(items))
	for i, item := range items {
		if err := validateItem(item); err != nil {
			err.Source = source
			err.Row = i + 1
			return nil, err
		}
		if _, dup := byID[item.ID]; dup {
			return nil, &model.ConfigurationError{Source: source, Row: i + 1, Field: "id", Reason: fmt.Sprintf("duplicate id %d", item.ID)}
		}
		byID[item.ID] = item
	}

	own := make([]model.CatalogItem, len(items))
	copy(own, items)
	return &Catalog{items: own, byID: byID}, nil
}

func validateItem(item model.CatalogItem) *model.ConfigurationError {
	switch {
	case item.ID <= 0:
		return &model.ConfigurationError{Field: "id", Reason: fmt.Sprintf("must be positive, got %d", item.ID)}
	case item.Name == "":
		return &model.ConfigurationError{Field: "name", Reason: "must not be empty"}
	case item.Price < 0:
		return &model.ConfigurationError{Field: "price", Reason: fmt.Sprintf("must not be negative, got %d", item.Price)}
	case !(item.Weight > 0 && item.Weight < 1):
		return &model.ConfigurationError{Field: "chance", Reason: fmt.Sprintf("must be strictly between 0 and 1, got %v", item.Weight)}
	}
	return nil
}

// Items returns a copy of the catalog items in source order.
func (c *Catalog) Items() []model.CatalogItem {
	out := make([]model.CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup finds an item by id.
func (c *Catalog) Lookup(id int64) (model.CatalogItem, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// IDs returns the item ids in ascending order.
func (c *Catalog) IDs() []int64 {
	ids := make([]int64, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
