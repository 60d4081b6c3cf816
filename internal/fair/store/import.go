package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
)

// ImportEvaluatorsCSV adds one evaluator per data row of a CSV text with a
// header row such as "name,email,expertise". Columns map by header name;
// rows without an email are skipped and a missing name falls back to the
// email. It returns the evaluators added.
func (tx *Tx) ImportEvaluatorsCSV(r io.Reader) ([]Evaluator, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeImportInvalid, "parse evaluator csv", err)
		}
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, record)
	}
	if len(rows) < 2 {
		return nil, apperrors.New(apperrors.CodeImportInvalid, "evaluator csv needs a header and at least one row")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var added []Evaluator
	for line, record := range rows[1:] {
		if len(record) < 2 {
			continue
		}
		var in EvaluatorInput
		for i, column := range header {
			if i >= len(record) {
				break
			}
			value := strings.TrimSpace(record[i])
			switch column {
			case "name":
				in.Name = value
			case "email":
				in.Email = value
			case "expertise":
				in.Expertise = value
			case "notes":
				in.Notes = value
			case "code":
				in.Code = AccessCode(value)
			}
		}
		if in.Email == "" {
			continue
		}
		if in.Name == "" {
			in.Name = in.Email
		}
		e, err := tx.CreateEvaluator(in)
		if err != nil {
			return nil, fmt.Errorf("import row %d: %w", line+2, err)
		}
		added = append(added, e)
	}
	return added, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
