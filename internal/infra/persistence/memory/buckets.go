package memory

import (
	"encoding/json"
	"fmt"
)

// Buckets lists the snapshot partitions written by the SQL-backed stores, one
// row per bucket.
var Buckets = []string{"hostels", "rooms", "students", "payments", "expenses", "menu"}

func (s *Snapshot) bucketTarget(bucket string) (any, bool) {
	switch bucket {
	case "hostels":
		return &s.Hostels, true
	case "rooms":
		return &s.Rooms, true
	case "students":
		return &s.Students, true
	case "payments":
		return &s.Payments, true
	case "expenses":
		return &s.Expenses, true
	case "menu":
		return &s.Menu, true
	}
	return nil, false
}

// EncodeBucket marshals one partition of the snapshot.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	target, ok := s.bucketTarget(bucket)
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return data, nil
}

// DecodeBucket fills one partition of the snapshot. Unknown buckets left by
// older schemas are ignored.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	target, ok := s.bucketTarget(bucket)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
