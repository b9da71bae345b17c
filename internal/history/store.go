// Package history keeps past reviews in an embedded bbolt database so later
// reviews of the same document can be compared against them.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/ndacheck/ndacheck/internal/digest"
	"github.com/ndacheck/ndacheck/internal/models"
)

// ErrNotFound is returned when no saved review matches
var ErrNotFound = errors.New("history: review not found")

// Bucket keys
var (
	bucketReviews   = []byte("reviews")
	bucketDocuments = []byte("documents")
)

// DefaultFile under the user's ndacheck directory
const DefaultFile = "history.db"

// Entry is one saved review
type Entry struct {
	ID     string        `json:"id"`
	Digest string        `json:"digest"` // findings fingerprint, see digest.Findings
	Review models.Review `json:"review"`
}

// Store persists reviews. Review ids are UUIDv7, so key order is save order.
type Store struct {
	db *bolt.DB
}

// DefaultPath returns ~/.ndacheck/history.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".ndacheck", DefaultFile), nil
}

// Open opens (or creates) a history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// documentKey groups reviews of the same file regardless of directory
func documentKey(name string) []byte {
	return []byte(filepath.Base(name))
}

// Save stores a review and returns its id.
func (s *Store) Save(rev *models.Review) (string, error) {
	if rev == nil {
		return "", fmt.Errorf("nil review")
	}
	if rev.Document.Name == "" {
		return "", fmt.Errorf("review has no document name")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	key := []byte(id.String())

	data, err := json.Marshal(Entry{ID: id.String(), Digest: digest.Findings(rev.Findings), Review: *rev})
	if err != nil {
		return "", fmt.Errorf("marshal review: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		reviews, err := tx.CreateBucketIfNotExists(bucketReviews)
		if err != nil {
			return err
		}
		if err := reviews.Put(key, data); err != nil {
			return err
		}
		docs, err := tx.CreateBucketIfNotExists(bucketDocuments)
		if err != nil {
			return err
		}
		doc, err := docs.CreateBucketIfNotExists(documentKey(rev.Document.Name))
		if err != nil {
			return err
		}
		return doc.Put(key, []byte(rev.ReviewedAt.UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return "", fmt.Errorf("save review: %w", err)
	}
	return id.String(), nil
}

// Get returns the review saved under id.
func (s *Store) Get(id string) (*Entry, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReviews)
		if b == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := b.Get([]byte(id)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read review: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decode(data)
}

// Latest returns the most recent review of a document.
func (s *Store) Latest(document string) (*Entry, error) {
	entries, err := s.List(document, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no reviews of %s", ErrNotFound, filepath.Base(document))
	}
	return &entries[0], nil
}

// List returns saved reviews newest first. An empty document lists every
// review; limit <= 0 means no limit.
func (s *Store) List(document string, limit int) ([]Entry, error) {
	var raw [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		reviews := tx.Bucket(bucketReviews)
		if reviews == nil {
			return nil
		}

		keys := reviews
		if document != "" {
			docs := tx.Bucket(bucketDocuments)
			if docs == nil {
				return nil
			}
			keys = docs.Bucket(documentKey(document))
			if keys == nil {
				return nil
			}
		}

		c := keys.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			v := reviews.Get(k)
			if v == nil {
				continue
			}
			buf := make([]byte, len(v))
			copy(buf, v)
			raw = append(raw, buf)
			if limit > 0 && len(raw) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, data := range raw {
		e, err := decode(data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// Documents lists document names with saved reviews, in key order
func (s *Store) Documents() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		if docs == nil {
			return nil
		}
		return docs.ForEachBucket(func(k []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return names, nil
}

func decode(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal review: %w", err)
	}
	return &e, nil
}
