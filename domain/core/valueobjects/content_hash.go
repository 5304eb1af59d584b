package valueobjects

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ContentHash names a binary asset by a cryptographic digest of its bytes.
// Two identical attachments share one hash and therefore one on-disk file;
// a written asset is immutable.
type ContentHash struct {
	digest string
	ext    string
}

// NewContentHash digests the given bytes. The extension is kept only as a
// filename hint and never participates in identity.
func NewContentHash(data []byte, ext string) ContentHash {
	sum := sha256.Sum256(data)
	return ContentHash{
		digest: hex.EncodeToString(sum[:]),
		ext:    normalizeExt(ext),
	}
}

// NewContentHashFromFilename restores a ContentHash from an asset filename
// of the form "<digest>.<ext>".
func NewContentHashFromFilename(name string) (ContentHash, error) {
	digest, ext, _ := strings.Cut(name, ".")
	if !isValidDigest(digest) {
		return ContentHash{}, errors.New("asset name must start with a sha-256 hex digest")
	}
	return ContentHash{digest: digest, ext: normalizeExt(ext)}, nil
}

// Digest returns the hex digest of the asset bytes
func (h ContentHash) Digest() string {
	return h.digest
}

// Ext returns the filename extension hint, without leading dot
func (h ContentHash) Ext() string {
	return h.ext
}

// Filename returns the on-disk name "<digest>.<ext>", or just the digest
// when no extension is known.
func (h ContentHash) Filename() string {
	if h.ext == "" {
		return h.digest
	}
	return h.digest + "." + h.ext
}

// Equals compares by digest only
func (h ContentHash) Equals(other ContentHash) bool {
	return h.digest == other.digest
}

// IsZero checks if the ContentHash is the zero value
func (h ContentHash) IsZero() bool {
	return h.digest == ""
}

// String returns the filename form
func (h ContentHash) String() string {
	return h.Filename()
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	return strings.ToLower(ext)
}

func isValidDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
