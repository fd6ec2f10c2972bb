package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"roulette-bot/internal/model"
)

// Required column names in the header row.
var columns = []string{"id", "name", "price", "chance"}

// imageExtensions are checked in order when resolving an item picture.
var imageExtensions = []string{".png", ".jpg"}

// Load reads the catalog at path and, when imageDir is set, resolves one image per item.
// The format is chosen by file extension: .xlsx, .csv, .yaml or .yml.
func Load(path, imageDir string) (*Catalog, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	items := make([]model.CatalogItem, 0, len(records))
	for i, rec := range records {
		item, err := parseRecord(rec)
		if err != nil {
			err.Source = path
			err.Row = i + 1
			return nil, err
		}
		items = append(items, item)
	}

	cat, err := New(path, items)
	if err != nil {
		return nil, err
	}

	if imageDir != "" {
		for i, item := range cat.items {
			img, err := resolveImage(imageDir, item.ID)
			if err != nil {
				return nil, &model.ConfigurationError{Source: path, Row: i + 1, Field: "image", Reason: err.Error()}
			}
			cat.items[i].ImagePath = img
			cat.byID[item.ID] = cat.items[i]
		}
	}

	return cat, nil
}

func readRecords(path string) ([]map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	case ".yaml", ".yml":
		return readYAML(path)
	default:
		return nil, &model.ConfigurationError{Source: path, Reason: "unsupported catalog format, want .xlsx, .csv or .yaml"}
	}
}

func readXLSX(path string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &model.ConfigurationError{Source: path, Reason: fmt.Sprintf("open workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &model.ConfigurationError{Source: path, Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &model.ConfigurationError{Source: path, Reason: fmt.Sprintf("read sheet %q: %v", sheets[0], err)}
	}
	return tableRecords(path, rows)
}

func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &model.ConfigurationError{Source: path, Reason: fmt.Sprintf("open: %v", err)}
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &model.ConfigurationError{Source: path, Reason: fmt.Sprintf("parse csv: %v", err)}
		}
		rows = append(rows, row)
	}
	return tableRecords(path, rows)
}

type yamlCatalog struct {
	Items []map[string]string `yaml:"items"`
}

func readYAML(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigurationError{Source: path, Reason: fmt.Sprintf("open: %v", err)}
	}

	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &model.ConfigurationError{Source: path, Reason: fmt.Sprintf("parse yaml: %v", err)}
	}
	return doc.Items, nil
}

// tableRecords turns a header row plus data rows into keyed records, skipping blank rows.
func tableRecords(path string, rows [][]string) ([]map[string]string, error) {
	if len(rows) == 0 {
		return nil, &model.ConfigurationError{Source: path, Reason: "missing header row"}
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, &model.ConfigurationError{Source: path, Row: 1, Field: col, Reason: "column missing from header"}
		}
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec := make(map[string]string, len(columns))
		for _, col := range columns {
			if i := index[col]; i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseRecord(rec map[string]string) (model.CatalogItem, *model.ConfigurationError) {
	var item model.CatalogItem

	id, err := strconv.ParseInt(strings.TrimSpace(rec["id"]), 10, 64)
	if err != nil {
		return item, &model.ConfigurationError{Field: "id", Reason: fmt.Sprintf("not an integer: %q", rec["id"])}
	}
	price, err := strconv.ParseInt(strings.TrimSpace(rec["price"]), 10, 64)
	if err != nil {
		return item, &model.ConfigurationError{Field: "price", Reason: fmt.Sprintf("not an integer: %q", rec["price"])}
	}
	weight, err := parseChance(rec["chance"])
	if err != nil {
		return item, &model.ConfigurationError{Field: "chance", Reason: fmt.Sprintf("not a number: %q", rec["chance"])}
	}

	item.ID = id
	item.Name = strings.TrimSpace(rec["name"])
	item.Price = price
	item.Weight = weight
	return item, nil
}

// parseChance accepts "0.05", "0,05" and "5%".
func parseChance(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if percent {
		v /= 100
	}
	return v, nil
}

func resolveImage(dir string, id int64) (string, error) {
	var found []string
	for _, ext := range imageExtensions {
		p := filepath.Join(dir, strconv.FormatInt(id, 10)+ext)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			found = append(found, p)
		}
	}
	if len(found) != 1 {
		return "", fmt.Errorf("expected exactly one image for item id %d in %s, found %d", id, dir, len(found))
	}
	return found[0], nil
}
