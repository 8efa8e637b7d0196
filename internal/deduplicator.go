package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Deduplicator removes repeated records, such as rows exported twice
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate removes duplicate records based on content hash, keeping the first
func (d *Deduplicator) Deduplicate(records []*StandardRecord) []*StandardRecord {
	seen := make(map[string]bool)
	unique := make([]*StandardRecord, 0, len(records))

	for _, record := range records {
		hash := d.hashRecordContent(record)
		if !seen[hash] {
			seen[hash] = true
			unique = append(unique, record)
		}
	}

	if removed := len(records) - len(unique); removed > 0 {
		LogInfo("Removed %d duplicate records", removed)
	}
	return unique
}

// hashRecordContent creates a content-based hash for a record
func (d *Deduplicator) hashRecordContent(record *StandardRecord) string {
	h := sha256.New()

	for _, field := range []string{record.ID, record.SessionID, record.Timestamp, record.Input, record.Output} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the hex SHA-256 of raw document content
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
