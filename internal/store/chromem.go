package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/perttin/crewmatch/internal/match"
)

// Compile-time check that ChromemStore implements ProfileStore.
var _ ProfileStore = (*ChromemStore)(nil)

const (
	chromemCollection = "consultants"
	mirrorFile        = "consultants.json"
)

// ChromemStore is a ProfileStore backed by chromem-go, an embedded pure-Go
// vector database. Selected via storage.backend=chromem; useful for
// development and as a migration path off the SQLite brute-force search.
// Full records ride along as JSON in document metadata, mirrored in memory
// for list/get without a vector query. For persistent databases the mirror
// is also written to a JSON sidecar in dataDir and reloaded on open, so
// list/get stay consistent with search across restarts.
type ChromemStore struct {
	collection *chromem.Collection
	timeout    time.Duration
	sidecar    string // mirror path; empty for in-memory stores

	mu      sync.RWMutex
	records map[string]match.Consultant
	order   []string // insertion order, keeps GetAll deterministic
}

// OpenChromem opens a persistent chromem database under dataDir, or an
// in-memory one when dataDir is ":memory:". The store embeds via the
// given Embedder, the same capability the SQLite backend uses. Vectors
// are normalized to unit length before they reach chromem, so the
// similarity it reports is true cosine.
func OpenChromem(dataDir string, embedder Embedder, timeout time.Duration) (*ChromemStore, error) {
	var db *chromem.DB
	var sidecar string
	var err error
	if dataDir == ":memory:" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dataDir, false)
		if err != nil {
			return nil, fmt.Errorf("opening chromem database: %w", err)
		}
		sidecar = filepath.Join(dataDir, mirrorFile)
	}

	// chromem normalizes query embeddings but trusts the embedding func
	// for document embeddings. Normalizing here keeps its dot product
	// equal to cosine regardless of what the embedding model returns.
	embedFn := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return normalized(vec), nil
	})
	coll, err := db.GetOrCreateCollection(chromemCollection, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	records, order, err := loadMirror(sidecar)
	if err != nil {
		return nil, err
	}

	return &ChromemStore{
		collection: coll,
		timeout:    timeout,
		sidecar:    sidecar,
		records:    records,
		order:      order,
	}, nil
}

// normalized scales a vector to unit length. The zero vector is returned
// unchanged; it matches nothing either way.
func normalized(v []float32) []float32 {
	n := norm(v)
	if n == 0 || n == 1 {
		return v
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f / n
	}
	return out
}

// loadMirror reads the record sidecar written by persistMirrorLocked.
// A missing file is an empty store; malformed records are skipped at
// the boundary like everywhere else.
func loadMirror(path string) (map[string]match.Consultant, []string, error) {
	records := make(map[string]match.Consultant)
	if path == "" {
		return records, nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return records, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading record mirror: %w", err)
	}

	var list []match.Consultant
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, nil, fmt.Errorf("parsing record mirror: %w", err)
	}

	var order []string
	for _, c := range list {
		if err := c.Validate(); err != nil {
			slog.Warn("skipping malformed consultant record", "id", c.ID, "error", err)
			continue
		}
		if _, exists := records[c.ID]; !exists {
			order = append(order, c.ID)
		}
		records[c.ID] = c
	}
	return records, order, nil
}

// persistMirrorLocked writes the record mirror to the sidecar. Caller
// holds mu. Write-then-rename so a crash never leaves a torn file.
func (s *ChromemStore) persistMirrorLocked() error {
	if s.sidecar == "" {
		return nil
	}

	out := make([]match.Consultant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshalling record mirror: %w", err)
	}

	tmp := s.sidecar + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing record mirror: %w", err)
	}
	return os.Rename(tmp, s.sidecar)
}

// Insert validates and stores a consultant document.
func (s *ChromemStore) Insert(ctx context.Context, c match.Consultant) error {
	if err := c.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling consultant: %w", err)
	}

	doc := chromem.Document{
		ID:      c.ID,
		Content: c.ProfileText(),
		Metadata: map[string]string{
			"record": string(record),
		},
	}
	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return upstreamErr("adding document", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.records[c.ID] = c
	return s.persistMirrorLocked()
}

// SearchSimilar queries the collection and decodes consultants from
// document metadata. Both query and document embeddings are unit length,
// so chromem's reported similarity is raw cosine — the same scale the
// SQLite backend feeds the scorer.
func (s *ChromemStore) SearchSimilar(ctx context.Context, queryText string, limit int) ([]match.Candidate, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// chromem requires nResults <= document count.
	if n := s.collection.Count(); n == 0 {
		return nil, nil
	} else if limit > n {
		limit = n
	}

	results, err := s.collection.Query(ctx, queryText, limit, nil, nil)
	if err != nil {
		return nil, upstreamErr("querying collection", err)
	}

	candidates := make([]match.Candidate, 0, len(results))
	for _, r := range results {
		var c match.Consultant
		if err := json.Unmarshal([]byte(r.Metadata["record"]), &c); err != nil {
			slog.Warn("skipping malformed consultant document", "id", r.ID, "error", err)
			continue
		}
		if err := c.Validate(); err != nil {
			slog.Warn("skipping malformed consultant document", "id", r.ID, "error", err)
			continue
		}
		candidates = append(candidates, match.Candidate{
			Consultant: c,
			Similarity: r.Similarity,
		})
	}
	return candidates, nil
}

// GetAll returns the mirrored records in insertion order.
func (s *ChromemStore) GetAll(ctx context.Context) ([]match.Consultant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]match.Consultant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

// Get returns a single consultant by id, or ErrNotFound.
func (s *ChromemStore) Get(ctx context.Context, id string) (match.Consultant, error) {
	s.mu.RLock()
	c, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return match.Consultant{}, fmt.Errorf("consultant %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// UpdateResume attaches resume text to a consultant and re-adds the
// document so the resume contributes to similarity.
func (s *ChromemStore) UpdateResume(ctx context.Context, id, resumeText, resumeRef string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c.ResumeRef = resumeRef

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling consultant: %w", err)
	}

	content := c.ProfileText()
	if resumeText != "" {
		content += "\n" + resumeText
	}
	doc := chromem.Document{
		ID:      c.ID,
		Content: content,
		Metadata: map[string]string{
			"record": string(record),
		},
	}
	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return upstreamErr("updating document", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = c
	return s.persistMirrorLocked()
}

// Count returns the number of stored consultants.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
