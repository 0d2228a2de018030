package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// LoadCSV reads records from a CSV file. The first row is the header; a
// UTF-8 BOM on the first cell is tolerated.
func LoadCSV(path string, opts Options) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records []model.Record
	for index := 0; ; index++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read csv row %d", index+1)
		}

		cols := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				cols[name] = row[i]
			}
		}

		if rec, ok := buildRecord(cols, index, opts); ok {
			records = append(records, rec)
		}

		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
	}

	return records, nil
}
