// Package sourceid derives stable identifiers for passage sources, recorded on saved turns.
package sourceid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/hyperjump/tanya/internal/models"
)

// ID prefixes per source kind.
const (
	documentPrefix = "doc:"
	videoPrefix    = "youtube:"
	tablePrefix    = "table:"
)

// Document returns a stable ID for a document path. Relative paths are made absolute first,
// so the same file always yields the same ID.
func Document(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return documentPrefix + hex.EncodeToString(hash[:])
}

// Video returns the ID for a video.
func Video(videoID string) string {
	return videoPrefix + videoID
}

// Table returns an ID derived from passage IDs and texts, in order.
func Table(passages []models.Passage) string {
	h := sha256.New()
	for _, p := range passages {
		h.Write([]byte(p.ID))
		h.Write([]byte{0})
		h.Write([]byte(p.Text))
		h.Write([]byte{0})
	}
	return tablePrefix + hex.EncodeToString(h.Sum(nil))
}
