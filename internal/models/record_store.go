package models

// RecordStore holds the ordered record collection. Mutating helpers return a
// candidate collection so the caller can persist it before committing with
// Replace. Callers serialize access.
type RecordStore struct {
	records []Record
}

// NewRecordStore builds a store from loaded records, collapsing duplicate keys.
func NewRecordStore(records []Record) *RecordStore {
	return &RecordStore{records: Collapse(records)}
}

func (s *RecordStore) Len() int {
	return len(s.records)
}

// Snapshot returns a copy of the collection.
func (s *RecordStore) Snapshot() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *RecordStore) Replace(records []Record) {
	s.records = records
}

// Find returns the index of the record equal to r on all four fields, or -1.
func (s *RecordStore) Find(r Record) int {
	for i, cur := range s.records {
		if cur == r {
			return i
		}
	}
	return -1
}

// WithAppended appends recs and collapses to one record per key, keeping the
// last occurrence.
func (s *RecordStore) WithAppended(recs ...Record) []Record {
	out := make([]Record, 0, len(s.records)+len(recs))
	out = append(out, s.records...)
	out = append(out, recs...)
	return Collapse(out)
}

// WithoutRecord removes the exact match of r. ok is false when nothing matched.
func (s *RecordStore) WithoutRecord(r Record) (out []Record, ok bool) {
	idx := s.Find(r)
	if idx < 0 {
		return nil, false
	}
	out = make([]Record, 0, len(s.records)-1)
	out = append(out, s.records[:idx]...)
	out = append(out, s.records[idx+1:]...)
	return out, true
}

// WithEdited replaces target by updated in place. Any other record already
// holding updated's key is removed and returned as superseded.
func (s *RecordStore) WithEdited(target, updated Record) (out []Record, superseded []Record, ok bool) {
	idx := s.Find(target)
	if idx < 0 {
		return nil, nil, false
	}
	key := updated.Key()
	out = make([]Record, 0, len(s.records))
	for i, cur := range s.records {
		switch {
		case i == idx:
			out = append(out, updated)
		case cur.Key() == key:
			superseded = append(superseded, cur)
		default:
			out = append(out, cur)
		}
	}
	return out, superseded, true
}

// Collapse keeps the last occurrence of every dedupe key, preserving the
// relative order of survivors.
func Collapse(records []Record) []Record {
	seen := make(map[Key]struct{}, len(records))
	keep := make([]bool, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		k := records[i].Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep[i] = true
	}

	out := make([]Record, 0, len(seen))
	for i, r := range records {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out
}
