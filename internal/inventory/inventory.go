// Package inventory reads product rows from CSV/XLSX inventory files and
// writes enrichment reports.
package inventory

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lifecycle-cli/internal/model"
)

// Column header aliases, matched case-insensitively after trimming.
var (
	manufacturerAliases = []string{"manufacturer", "vendor", "make", "mfr"}
	identifierAliases   = []string{"identifier", "part number", "part_number", "model", "model number", "product id", "sku"}
	descriptionAliases  = []string{"description", "product description", "name"}
	categoryAliases     = []string{"category", "type", "product category"}
)

// ReadProducts loads products from a CSV or XLSX inventory file, mapping
// columns by header row. Rows without an identifier are skipped.
func ReadProducts(path string) ([]model.Product, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, eris.Errorf("inventory: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("inventory: file has no rows")
	}

	cols := mapColumns(rows[0])
	if cols.identifier < 0 {
		return nil, eris.New("inventory: no identifier column found in header")
	}

	var products []model.Product
	for _, row := range rows[1:] {
		p := model.Product{
			Manufacturer: cellAt(row, cols.manufacturer),
			Identifier:   cellAt(row, cols.identifier),
			Description:  cellAt(row, cols.description),
			Category:     cellAt(row, cols.category),
		}
		if strings.TrimSpace(p.Identifier) == "" {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

type columnMap struct {
	manufacturer int
	identifier   int
	description  int
	category     int
}

func mapColumns(header []string) columnMap {
	cols := columnMap{manufacturer: -1, identifier: -1, description: -1, category: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case cols.manufacturer < 0 && matchesAlias(name, manufacturerAliases):
			cols.manufacturer = i
		case cols.identifier < 0 && matchesAlias(name, identifierAliases):
			cols.identifier = i
		case cols.description < 0 && matchesAlias(name, descriptionAliases):
			cols.description = i
		case cols.category < 0 && matchesAlias(name, categoryAliases):
			cols.category = i
		}
	}
	return cols
}

func matchesAlias(name string, aliases []string) bool {
	for _, a := range aliases {
		if name == a {
			return true
		}
	}
	return false
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "inventory: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "inventory: read csv")
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "inventory: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("inventory: xlsx file has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
