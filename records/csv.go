// Package records loads applicant data from CSV files. Columns are matched
// by header name, not position, so spreadsheets exported with extra or
// reordered columns still load.
package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// headerAliases maps legacy spreadsheet headers to canonical column names.
var headerAliases = map[string]string{
	"email_address":         "email",
	"country_traveling_to":  "traveling_to",
	"country_travelling_to": "traveling_to",
	"position_applied_for":  "position",
}

// ignoredHeaders are columns present in old spreadsheets that carry no
// candidate field: the appointment location is configured per run, and the
// passport confirmation column just duplicates passport_number.
var ignoredHeaders = map[string]bool{
	"appointment_location":    true,
	"confirm_passport_number": true,
}

// LoadCandidates reads a header-mapped candidate CSV from path.
func LoadCandidates(path string) ([]models.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidate file: %w", err)
	}
	defer f.Close()
	return ReadCandidates(f)
}

// ReadCandidates parses candidate rows from r. The first row must be a
// header; unrecognized columns are skipped, missing columns leave the
// corresponding fields empty.
func ReadCandidates(r io.Reader) ([]models.Candidate, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("candidate file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	fields := fieldIndexes(header)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no recognized columns in header %v", header)
	}

	var out []models.Candidate
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out)+2, err)
		}
		var c models.Candidate
		v := reflect.ValueOf(&c).Elem()
		for col, fi := range fields {
			if col >= len(row) {
				continue
			}
			v.Field(fi).SetString(strings.TrimSpace(row[col]))
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("candidate file has no data rows")
	}
	return out, nil
}

// fieldIndexes maps a column position to the Candidate struct field it
// fills, resolved through the csv struct tags.
func fieldIndexes(header []string) map[int]int {
	tagToField := map[string]int{}
	t := reflect.TypeOf(models.Candidate{})
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("csv"); tag != "" {
			tagToField[tag] = i
		}
	}

	fields := map[int]int{}
	for col, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		if alias, ok := headerAliases[key]; ok {
			key = alias
		}
		if ignoredHeaders[key] {
			continue
		}
		if fi, ok := tagToField[key]; ok {
			fields[col] = fi
		}
	}
	return fields
}
