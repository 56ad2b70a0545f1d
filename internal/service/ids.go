package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// newDocID derives the document identity from filename and normalized text.
// Identical documents map to identical ids, which makes re-ingestion replace
// prior chunks in the store instead of duplicating them.
func newDocID(filename, normalizedText string) string {
	hash := sha256.Sum256([]byte(filename + "\x00" + normalizedText))
	return hex.EncodeToString(hash[:])[:16]
}

func chunkID(docID string, seq int) string {
	return fmt.Sprintf("%s_%04d", docID, seq)
}
