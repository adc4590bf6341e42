// Package filter derives table views from a record collection.
package filter

import (
	"strings"
	"time"

	"dppmini/internal/expiry"
	"dppmini/internal/models"
)

const (
	WarnFrom = "from"
	WarnTo   = "to"

	dateHint = "Use full date: YYYY-MM-DD"
)

// Criteria are optional view constraints. Blank values impose no restriction.
type Criteria struct {
	GtinContains  string `json:"gtin,omitempty"`
	BatchContains string `json:"batch,omitempty"`
	ExpiryFrom    string `json:"from,omitempty"`
	ExpiryTo      string `json:"to,omitempty"`
}

// Warnings maps a bound ("from" or "to") to a message when its text was
// supplied but not a valid date.
type Warnings map[string]string

// IsZero reports whether no criterion is supplied, in which case Apply would
// keep every record and warn about nothing.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.GtinContains) == "" &&
		strings.TrimSpace(c.BatchContains) == "" &&
		strings.TrimSpace(c.ExpiryFrom) == "" &&
		strings.TrimSpace(c.ExpiryTo) == ""
}

// Apply returns the records matching every supplied criterion. Malformed
// date bounds are skipped and reported in the warnings map.
func Apply(records []models.Record, c Criteria) ([]models.Record, Warnings) {
	warns := Warnings{}

	gtinQ := strings.TrimSpace(c.GtinContains)
	batchQ := strings.ToLower(strings.TrimSpace(c.BatchContains))

	from, hasFrom := parseBound(c.ExpiryFrom, WarnFrom, warns)
	to, hasTo := parseBound(c.ExpiryTo, WarnTo, warns)

	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if gtinQ != "" && !strings.Contains(r.Gtin, gtinQ) {
			continue
		}
		if batchQ != "" && !strings.Contains(strings.ToLower(r.Batch), batchQ) {
			continue
		}
		if hasFrom || hasTo {
			d, ok := expiry.Parse(r.Expiry)
			if !ok {
				continue
			}
			if hasFrom && d.Before(from) {
				continue
			}
			if hasTo && d.After(to) {
				continue
			}
		}
		out = append(out, r)
	}
	return out, warns
}

func parseBound(text, side string, warns Warnings) (time.Time, bool) {
	if strings.TrimSpace(text) == "" {
		return time.Time{}, false
	}
	d, ok := expiry.Parse(text)
	if !ok {
		warns[side] = dateHint
		return time.Time{}, false
	}
	return d, true
}
