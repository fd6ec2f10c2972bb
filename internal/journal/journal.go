// Package journal appends committed spins to a spreadsheet for manual review.
package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"roulette-bot/internal/model"
)

// SheetName is the worksheet rows are appended to.
const SheetName = "spin"

var header = []interface{}{"timestamp", "user_id", "username", "chat_id", "item_id", "item_name", "price", "chance"}

// Journal is an append-only xlsx log of grants. The ledger stays the source
// of truth; the journal is best effort.
type Journal struct {
	mu   sync.Mutex
	path string
}

// New creates a journal writing to path. The file is created on first append.
func New(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the workbook location.
func (j *Journal) Path() string {
	return j.path
}

// Entry is one committed grant with its catalog item.
type Entry struct {
	Grant model.Grant
	Item  model.CatalogItem
}

// Append writes one row for a committed grant.
func (j *Journal) Append(g model.Grant, item model.CatalogItem) error {
	return j.AppendBatch([]Entry{{Grant: g, Item: item}})
}

// AppendBatch writes entries in order with one workbook save.
func (j *Journal) AppendBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := j.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return fmt.Errorf("read journal sheet: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, len(rows)+1+i)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.Grant.Timestamp.UTC().Format(time.RFC3339Nano),
			e.Grant.UserID,
			e.Grant.Username,
			e.Grant.ChatID,
			e.Item.ID,
			e.Item.Name,
			e.Item.Price,
			e.Item.Weight,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write journal row: %w", err)
		}
	}

	if err := f.SaveAs(j.path); err != nil {
		return fmt.Errorf("save journal: %w", err)
	}
	return nil
}

// open loads the workbook, creating it with a header row when missing.
func (j *Journal) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(j.path)
	if err == nil {
		if idx, _ := f.GetSheetIndex(SheetName); idx < 0 {
			if _, err := f.NewSheet(SheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("add journal sheet: %w", err)
			}
			if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
				f.Close()
				return nil, err
			}
		}
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if dir := filepath.Dir(j.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	f = excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
