package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"dppmini/internal/models"
)

// ImportColumns must all be present in a bulk import header.
var ImportColumns = []string{"gtin", "batch", "expiry"}

// MissingColumnsError aborts an import before any row is processed.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

// ReadImport parses a bulk import CSV into raw inputs. Header names are
// matched after trimming and lower-casing; extra columns are ignored. A
// leading BOM and an Excel "sep=X" line are accepted.
func ReadImport(r io.Reader) ([]models.ItemInput, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	comma := ','
	if head, _ := br.Peek(4); strings.EqualFold(string(head), "sep=") {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		hint := strings.TrimRight(line[4:], "\r\n")
		if d, size := utf8.DecodeRuneInString(hint); size > 0 && d != utf8.RuneError {
			comma = d
		}
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MissingColumnsError{Columns: ImportColumns}
		}
		return nil, fmt.Errorf("read import header: %w", err)
	}

	index := columnIndex(header)
	var missing []string
	for _, col := range ImportColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var inputs []models.ItemInput
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read import rows: %w", err)
		}
		inputs = append(inputs, models.ItemInput{
			Gtin:   cell(row, index, "gtin"),
			Batch:  cell(row, index, "batch"),
			Expiry: cell(row, index, "expiry"),
		})
	}
	return inputs, nil
}
