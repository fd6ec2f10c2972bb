package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"roulette-bot/internal/catalog"
	"roulette-bot/internal/model"
)

// PageSize is the number of inventory lines per page.
const PageSize = 25

const emptyInventoryText = "Инвентарь пуст.\n\nУникальных предметов: 0\nВсего предметов: 0\nСуммарная стоимость: 0 метровалюта"

// EntryLister is the part of the ledger the renderer reads.
type EntryLister interface {
	ListEntries(ctx context.Context, userID int64) ([]model.InventoryEntry, error)
}

// InventoryRow is one owned item joined with its catalog data.
type InventoryRow struct {
	ItemID int64   `json:"item_id"`
	Name   string  `json:"name"`
	Count  int64   `json:"count"`
	Price  int64   `json:"price"`
	Chance float64 `json:"chance"`
}

// InventoryView is a user's whole inventory with totals.
type InventoryView struct {
	UserID      int64          `json:"user_id"`
	Rows        []InventoryRow `json:"items"`
	UniqueItems int            `json:"unique_items"`
	TotalItems  int64          `json:"total_items"`
	TotalValue  int64          `json:"total_value"`
}

// Navigation describes the page buttons. Prev and Next are -1 when absent.
type Navigation struct {
	UserID int64
	Prev   int
	Next   int
}

// Page is one rendered inventory page. Nav is nil when everything fits on one page.
type Page struct {
	Text       string
	Index      int
	TotalPages int
	Nav        *Navigation
}

// InventoryService joins ledger entries with the catalog.
type InventoryService struct {
	entries EntryLister
	catalog *catalog.Catalog
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(entries EntryLister, cat *catalog.Catalog) *InventoryService {
	return &InventoryService{entries: entries, catalog: cat}
}

// View returns the user's inventory. Entries whose item is no longer in the
// catalog are dropped and do not count toward the totals.
func (s *InventoryService) View(ctx context.Context, userID int64) (*InventoryView, error) {
	entries, err := s.entries.ListEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &InventoryView{UserID: userID, Rows: make([]InventoryRow, 0, len(entries))}
	for _, e := range entries {
		item, ok := s.catalog.Lookup(e.ItemID)
		if !ok {
			continue
		}
		view.Rows = append(view.Rows, InventoryRow{
			ItemID: item.ID,
			Name:   item.Name,
			Count:  e.Count,
			Price:  item.Price,
			Chance: item.Weight,
		})
		view.TotalItems += e.Count
		view.TotalValue += item.Price * e.Count
	}
	view.UniqueItems = len(view.Rows)
	return view, nil
}

// RenderPage renders page of the user's inventory. Out-of-range pages are clamped.
func (s *InventoryService) RenderPage(ctx context.Context, userID int64, page int) (*Page, error) {
	view, err := s.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	if view.UniqueItems == 0 {
		return &Page{Text: emptyInventoryText, TotalPages: 1}, nil
	}

	totalPages := (view.UniqueItems-1)/PageSize + 1
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * PageSize
	end := min(start+PageSize, view.UniqueItems)

	var b strings.Builder
	for _, row := range view.Rows[start:end] {
		fmt.Fprintf(&b, "%s x%d | цена %d метровалюта | шанс %s\n",
			row.Name, row.Count, row.Price, strconv.FormatFloat(row.Chance, 'f', -1, 64))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Уникальных предметов: %d\n", view.UniqueItems)
	fmt.Fprintf(&b, "Всего предметов: %d\n", view.TotalItems)
	fmt.Fprintf(&b, "Суммарная стоимость: %d метровалюта", view.TotalValue)

	p := &Page{Text: b.String(), Index: page, TotalPages: totalPages}
	if totalPages > 1 {
		nav := &Navigation{UserID: userID, Prev: -1, Next: -1}
		if page > 0 {
			nav.Prev = page - 1
		}
		if page < totalPages-1 {
			nav.Next = page + 1
		}
		p.Nav = nav
	}
	return p, nil
}
