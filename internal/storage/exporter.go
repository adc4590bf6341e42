package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"dppmini/internal/models"
	"dppmini/internal/storage/interfaces"

	"github.com/xuri/excelize/v2"
)

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatZstd ExportFormat = "zst"

	// ExportSheet is the worksheet name used in XLSX exports.
	ExportSheet = "items"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatZstd:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

func (f ExportFormat) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatZstd:
		return "application/zstd"
	default:
		return "text/csv; charset=utf-8"
	}
}

func (f ExportFormat) FileName() string {
	switch f {
	case FormatXLSX:
		return "items.xlsx"
	case FormatZstd:
		return "items.csv.zst"
	default:
		return "items.csv"
	}
}

// ErrBadCompressedUpload is returned when an upload carries the zstd frame
// magic but does not decompress.
var ErrBadCompressedUpload = errors.New("upload is not a valid zstd stream")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type Exporter struct {
	compressor interfaces.CompressorInterface
}

func NewExporter(compressor interfaces.CompressorInterface) *Exporter {
	return &Exporter{compressor: compressor}
}

func (e *Exporter) Export(format ExportFormat, records []models.Record) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportCSV(records)
	case FormatXLSX:
		return ExportXLSX(records)
	case FormatZstd:
		data, err := ExportCSV(records)
		if err != nil {
			return nil, err
		}
		return e.compressor.Compress(data)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// ExportCSV renders records for spreadsheet tools: a UTF-8 BOM, a "sep=,"
// hint line, the header and one line per record.
func ExportCSV(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	buf.WriteString("sep=,\n")
	if err := writeRecordsCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ExportXLSX(records []models.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(models.Columns))
	for i, col := range models.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range records {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{r.Gtin, r.Batch, r.Expiry, r.CreatedAt}
		if err := f.SetSheetRow(ExportSheet, cellName, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeUpload lets a .csv.zst export be imported back. Input starting with
// the zstd frame magic is decompressed; anything else is passed through.
func (e *Exporter) DecodeUpload(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(zstdMagic)); !bytes.Equal(head, zstdMagic) {
		return br, nil
	}

	raw, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	plain, err := e.compressor.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCompressedUpload, err)
	}
	return bytes.NewReader(plain), nil
}
