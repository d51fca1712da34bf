// Package imagestore persists extracted question images, deduplicated by
// content hash. Filenames are derived from the hash so repeated writes of
// the same bytes (including across replay after a crash) land on the same
// stored reference.
package imagestore

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"path"
	"sync"

	"github.com/minio/highwayhash"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

var hashKey = []byte("examkit-image-content-hash-key!!")

// ContentHash returns the hex-encoded 64-bit content digest of raw image
// bytes. Used for storage deduplication and logo detection.
func ContentHash(data []byte) string {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// key length is fixed at compile time; New64 cannot fail with it
		panic(err)
	}
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Store writes images under a base URL, one file per unique content hash.
type Store struct {
	fs      afs.Service
	baseURL string

	mu    sync.Mutex
	known map[string]string // hash -> stored ref
}

// New creates a store rooted at baseURL (a viant/afs URL or plain path).
func New(baseURL string) *Store {
	return &Store{
		fs:      afs.New(),
		baseURL: baseURL,
		known:   make(map[string]string),
	}
}

// Put stores image bytes for an exam and returns the stored reference,
// relative to the store root. Subsequent calls with the same content hash
// return the first reference without rewriting.
func (s *Store) Put(ctx context.Context, examID, hash, format string, data []byte) (string, error) {
	if format == "" {
		format = "png"
	}
	rel := path.Join(examID, fmt.Sprintf("img_%s.%s", hash, format))

	s.mu.Lock()
	if ref, ok := s.known[hash]; ok {
		s.mu.Unlock()
		return ref, nil
	}
	s.mu.Unlock()

	url := path.Join(s.baseURL, rel)
	if ok, _ := s.fs.Exists(ctx, url); !ok {
		if err := s.fs.Upload(ctx, url, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("failed to store image %s: %w", rel, err)
		}
	}

	s.mu.Lock()
	s.known[hash] = rel
	s.mu.Unlock()
	return rel, nil
}

// BaseURL returns the store root.
func (s *Store) BaseURL() string {
	return s.baseURL
}
