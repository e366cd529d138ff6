// Package cache keeps transcriptions so re-running a pass over unchanged
// files does not call the OCR or vision backend again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// TranscriptKey generates a cache key for one file transcribed by one
// engine and model. The file is identified by its content hash.
func TranscriptKey(fileHash, engine, model string) string {
	hash := sha256.Sum256([]byte(strings.Join([]string{fileHash, engine, model}, "\x00")))
	return "lineage:v1:" + hex.EncodeToString(hash[:])
}

// Stats reports cache effectiveness for a run
type Stats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Pending int `json:"pending"` // written to memory, not yet flushed to disk
}
