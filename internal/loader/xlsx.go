package loader

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// LoadXLSX reads records from an XLSX workbook. The first row of the chosen
// sheet is the header; SkipRows skips additional rows below it.
func LoadXLSX(path string, opts Options) ([]model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open xlsx")
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := rowStrings(sheet.Rows[0])

	var records []model.Record
	for i, row := range sheet.Rows[1:] {
		if i < opts.SkipRows {
			continue
		}
		cells := rowStrings(row)

		cols := make(map[string]string, len(header))
		for j, name := range header {
			if j < len(cells) {
				cols[name] = cells[j]
			}
		}

		if rec, ok := buildRecord(cols, i, opts); ok {
			records = append(records, rec)
		}

		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
	}

	return records, nil
}

func pickSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("loader: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("loader: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
