package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"roulette-bot/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.csv", "id,name,price,chance\n1, Ржавый нож ,10,0.5\n\n2,Золотой слиток,1000,\"0,05\"\n3,Алмаз,5000,1%\n")

	cat, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, 3, cat.Len())

	items := cat.Items()
	assert.Equal(t, "Ржавый нож", items[0].Name)
	assert.InDelta(t, 0.05, items[1].Weight, 1e-9)
	assert.InDelta(t, 0.01, items[2].Weight, 1e-9)

	item, ok := cat.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, int64(1000), item.Price)
	assert.Equal(t, []int64{1, 2, 3}, cat.IDs())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.yaml", `items:
  - {id: 4, name: Кепка, price: 25, chance: 0.3}
  - {id: 9, name: Шляпа, price: 40, chance: 0.2}
`)

	cat, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 9}, cat.IDs())
}

func TestLoadXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"chance", "id", "name", "price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{0.25, 7, "Монета", 3}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{0.75, 8, "Пуговица", 0}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cat, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	item, ok := cat.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, "Монета", item.Name)
	assert.InDelta(t, 0.25, item.Weight, 1e-9)
}

func TestLoadRejectsBadRows(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"weight one":     {"id,name,price,chance\n1,a,1,1\n", "chance"},
		"weight zero":    {"id,name,price,chance\n1,a,1,0\n", "chance"},
		"negative price": {"id,name,price,chance\n1,a,-1,0.5\n", "price"},
		"fractional id":  {"id,name,price,chance\n1.5,a,1,0.5\n", "id"},
		"zero id":        {"id,name,price,chance\n0,a,1,0.5\n", "id"},
		"blank name":     {"id,name,price,chance\n1,   ,1,0.5\n", "name"},
		"duplicate id":   {"id,name,price,chance\n1,a,1,0.5\n1,b,1,0.5\n", "id"},
		"missing column": {"id,name,price\n1,a,1\n", "chance"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "items.csv", tc.body)

			_, err := Load(path, "")
			require.Error(t, err)

			var cfgErr *model.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
			assert.Equal(t, path, cfgErr.Source)
		})
	}
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	path := writeFile(t, t.TempDir(), "items.csv", "id,name,price,chance\n")

	_, err := Load(path, "")
	require.Error(t, err)
	assert.True(t, model.IsConfigurationError(err))
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "items.json", "[]")

	_, err := Load(path, "")
	assert.True(t, model.IsConfigurationError(err))
}

func TestLoadResolvesImages(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "item")
	require.NoError(t, os.Mkdir(imgDir, 0o755))
	writeFile(t, imgDir, "1.png", "png")
	writeFile(t, imgDir, "2.jpg", "jpg")

	path := writeFile(t, dir, "items.csv", "id,name,price,chance\n1,a,1,0.5\n2,b,1,0.5\n")

	cat, err := Load(path, imgDir)
	require.NoError(t, err)

	item, _ := cat.Lookup(1)
	assert.Equal(t, filepath.Join(imgDir, "1.png"), item.ImagePath)
	item, _ = cat.Lookup(2)
	assert.Equal(t, filepath.Join(imgDir, "2.jpg"), item.ImagePath)
	assert.Equal(t, filepath.Join(imgDir, "2.jpg"), cat.Items()[1].ImagePath)
}

func TestLoadRejectsMissingOrAmbiguousImage(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "item")
	require.NoError(t, os.Mkdir(imgDir, 0o755))
	writeFile(t, imgDir, "1.png", "png")
	writeFile(t, imgDir, "1.jpg", "jpg")

	path := writeFile(t, dir, "items.csv", "id,name,price,chance\n1,a,1,0.5\n")
	_, err := Load(path, imgDir)
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "image", cfgErr.Field)

	path = writeFile(t, dir, "items2.csv", "id,name,price,chance\n5,a,1,0.5\n")
	_, err = Load(path, imgDir)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "image", cfgErr.Field)
}
