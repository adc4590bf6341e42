package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type DropReason string

const (
	DropInvalidGTIN   DropReason = "invalid_gtin"
	DropEmptyBatch    DropReason = "empty_batch"
	DropInvalidExpiry DropReason = "invalid_expiry"
	DropPastExpiry    DropReason = "past_expiry"
)

// DropReasons lists reasons in the order rows are checked.
var DropReasons = []DropReason{DropInvalidGTIN, DropEmptyBatch, DropInvalidExpiry, DropPastExpiry}

var dropLabels = map[DropReason]string{
	DropInvalidGTIN:   "invalid GTIN",
	DropEmptyBatch:    "empty batch",
	DropInvalidExpiry: "invalid expiry",
	DropPastExpiry:    "past expiry",
}

// ImportReport summarizes one bulk import.
type ImportReport struct {
	ID         uuid.UUID          `json:"id"`
	ImportedAt string             `json:"imported_at"`
	Rows       int                `json:"rows"`
	Accepted   int                `json:"accepted"`
	Added      int                `json:"added"`
	Dropped    map[DropReason]int `json:"dropped"`
}

func NewImportReport() *ImportReport {
	return &ImportReport{
		ID:      uuid.New(),
		Dropped: make(map[DropReason]int),
	}
}

func (r *ImportReport) Drop(reason DropReason) {
	r.Dropped[reason]++
}

func (r *ImportReport) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// DropSummary renders non-zero drop counts, e.g. "invalid GTIN: 1, past expiry: 2".
func (r *ImportReport) DropSummary() string {
	var parts []string
	for _, reason := range DropReasons {
		if n := r.Dropped[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", dropLabels[reason], n))
		}
	}
	return strings.Join(parts, ", ")
}
