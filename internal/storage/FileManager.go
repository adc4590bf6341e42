package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dppmini/internal/models"
	"dppmini/internal/providers"
	"dppmini/internal/structures"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileManager reads and rewrites the CSV data file. Every Save replaces the
// whole file through a temporary file and a rename.
type FileManager struct {
	path   string
	logger providers.Logger
	now    func() time.Time
}

func NewFileManager(conf *structures.Config, logger providers.Logger) *FileManager {
	return &FileManager{
		path:   conf.Storage.DataFile,
		logger: logger,
		now:    time.Now,
	}
}

func (f *FileManager) Path() string {
	return f.path
}

func (f *FileManager) Save(records []models.Record) error {
	var buf bytes.Buffer
	if err := writeRecordsCSV(&buf, records); err != nil {
		return err
	}
	return writeFileAtomic(f.path, buf.Bytes())
}

// Load reads the data file. A missing or empty file yields no records.
// Missing columns are filled in (created_at with the current time) and
// unknown columns are dropped.
func (f *FileManager) Load() ([]models.Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", f.path, err)
	}

	index := columnIndex(header)
	var missing []string
	for _, col := range models.Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		f.logger.Warnf(providers.TypeApp, "Data file %s lacks columns %s, filling defaults", f.path, strings.Join(missing, ", "))
	}

	stamp := models.FormatTimestamp(f.now())
	var records []models.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.path, err)
		}
		rec := models.Record{
			Gtin:      cell(row, index, "gtin"),
			Batch:     cell(row, index, "batch"),
			Expiry:    cell(row, index, "expiry"),
			CreatedAt: cell(row, index, "created_at"),
		}
		if _, ok := index["created_at"]; !ok {
			rec.CreatedAt = stamp
		}
		records = append(records, rec)
	}
	return records, nil
}

// columnIndex maps trimmed, lower-cased header names to their first position.
func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	return index
}

func cell(row []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func writeRecordsCSV(w io.Writer, records []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFileAtomic(fileName string, data []byte) error {
	if dir := filepath.Dir(fileName); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	if _, err = w.Write(data); err == nil {
		err = w.Flush()
	}
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}
