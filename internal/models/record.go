package models

import (
	"sort"
	"time"
)

// Columns is the fixed column order of the data and export files.
var Columns = []string{"gtin", "batch", "expiry", "created_at"}

// TimestampLayout matches the ISO form written by earlier versions of the tool.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Record is a single batch/expiry entry. Fields are kept as strings, exactly
// as they appear on disk.
type Record struct {
	Gtin      string `json:"gtin"`
	Batch     string `json:"batch"`
	Expiry    string `json:"expiry"`
	CreatedAt string `json:"created_at"`
}

// Key is the dedupe key of a record.
type Key struct {
	Gtin   string
	Batch  string
	Expiry string
}

// ItemInput carries raw, unvalidated field values from a form, a request
// body or an import row.
type ItemInput struct {
	Gtin   string `json:"gtin"`
	Batch  string `json:"batch"`
	Expiry string `json:"expiry"`
}

func (r Record) Key() Key {
	return Key{Gtin: r.Gtin, Batch: r.Batch, Expiry: r.Expiry}
}

// Fields returns the record values in Columns order.
func (r Record) Fields() []string {
	return []string{r.Gtin, r.Batch, r.Expiry, r.CreatedAt}
}

func (r Record) CreatedTime() (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// SortNewestFirst orders records by created_at descending. Records with an
// unparsable timestamp go last; ties keep their relative order.
func SortNewestFirst(records []Record) {
	times := make(map[string]time.Time, len(records))
	valid := make(map[string]bool, len(records))
	for _, r := range records {
		if _, done := valid[r.CreatedAt]; done {
			continue
		}
		t, ok := r.CreatedTime()
		times[r.CreatedAt] = t
		valid[r.CreatedAt] = ok
	}
	sort.SliceStable(records, func(i, j int) bool {
		vi, vj := valid[records[i].CreatedAt], valid[records[j].CreatedAt]
		if vi != vj {
			return vi
		}
		if !vi {
			return false
		}
		return times[records[i].CreatedAt].After(times[records[j].CreatedAt])
	})
}
