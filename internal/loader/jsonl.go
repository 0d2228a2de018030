package loader

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
)

// LoadJSONL reads one JSON object per line. Blank lines are skipped.
func LoadJSONL(path string, opts Options) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open jsonl")
	}
	defer f.Close()

	var records []model.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	for index := 0; scanner.Scan(); index++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, eris.Wrapf(err, "loader: jsonl line %d", index+1)
		}

		cols := make(map[string]string, len(obj))
		extra := make(map[string]any)
		for k, v := range obj {
			switch s := v.(type) {
			case string:
				cols[k] = s
			default:
				extra[k] = v
			}
		}

		rec, ok := buildRecord(cols, index, opts)
		if !ok {
			continue
		}
		for k, v := range extra {
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[k] = v
		}
		records = append(records, rec)

		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "loader: scan jsonl")
	}
	return records, nil
}
