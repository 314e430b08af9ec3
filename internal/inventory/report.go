package inventory

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lifecycle-cli/internal/model"
)

var reportHeader = []string{
	"Manufacturer",
	"Identifier",
	"Introduced",
	"End of Sale",
	"End of SW Maintenance",
	"End of Security Support",
	"Last Day of Support",
	"Confidence",
	"Current Product",
	"From Cache",
	"Estimated Fields",
	"Ordering Violations",
}

// WriteReport writes enrichment results to an XLSX workbook at path.
func WriteReport(path string, results []model.EnrichedProduct) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Lifecycle")
	if err != nil {
		return eris.Wrap(err, "inventory: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range reportHeader {
		hr.AddCell().Value = h
	}

	for _, r := range results {
		row := sheet.AddRow()
		row.AddCell().Value = r.Product.Manufacturer
		row.AddCell().Value = r.Product.Identifier
		for _, field := range model.FieldOrder {
			row.AddCell().Value = dateCell(r.Result.Dates.Get(field))
		}
		row.AddCell().Value = fmt.Sprintf("%d", r.Result.Confidence.Overall)
		row.AddCell().Value = boolCell(r.Result.IsCurrentProduct)
		row.AddCell().Value = boolCell(r.Result.FromCache)
		row.AddCell().Value = estimatedCell(r.Estimation)
		row.AddCell().Value = strings.Join(r.OrderingViolations, "; ")
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "inventory: save report")
	}
	return nil
}

func dateCell(d model.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func boolCell(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func estimatedCell(meta *model.EstimationMetadata) string {
	if meta == nil || len(meta.EstimatedFields) == 0 {
		return ""
	}
	parts := make([]string, len(meta.EstimatedFields))
	for i, f := range meta.EstimatedFields {
		parts[i] = string(f)
	}
	return strings.Join(parts, "; ")
}
