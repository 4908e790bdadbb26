package store

import (
	"container/heap"
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/perttin/crewmatch/internal/match"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Compile-time check that SQLiteStore implements ProfileStore.
var _ ProfileStore = (*SQLiteStore)(nil)

// SQLiteStore is the default ProfileStore: consultant records and their
// embeddings in a single SQLite database, with brute-force cosine
// similarity search. Fine for consultant pools in the thousands; an
// ANN-backed store can replace it behind the same interface.
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
	timeout  time.Duration
}

// OpenSQLite opens (or creates) the consultant database in dataDir and
// runs pending migrations. Pass ":memory:" as dataDir for an in-memory
// database (used by tests). timeout is the per-call budget for store
// operations; <= 0 means 10s.
func OpenSQLite(dataDir string, embedder Embedder, timeout time.Duration) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "crewmatch.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &SQLiteStore{db: db, embedder: embedder, timeout: timeout}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that haven't run yet.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// Insert validates and stores a consultant, embedding its profile text.
func (s *SQLiteStore) Insert(ctx context.Context, c match.Consultant) error {
	if err := c.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, c.ProfileText())
	if err != nil {
		return upstreamErr("embedding profile", err)
	}

	skills, err := json.Marshal(c.Skills)
	if err != nil {
		return fmt.Errorf("marshalling skills: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO consultants (id, name, email, skills, availability, experience, education, resume_ref, resume_text, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)`,
		c.ID, c.Name, c.Email, string(skills), c.Availability, c.Experience, c.Education, c.ResumeRef,
		encodeFloat32s(vec), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return upstreamErr("inserting consultant", err)
	}
	return nil
}

// UpdateResume attaches resume text to a consultant and re-embeds the
// profile so the resume contributes to semantic similarity.
func (s *SQLiteStore) UpdateResume(ctx context.Context, id, resumeText, resumeRef string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	profile := c.ProfileText()
	if resumeText != "" {
		profile += "\n" + resumeText
	}
	vec, err := s.embedder.Embed(ctx, profile)
	if err != nil {
		return upstreamErr("embedding profile", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE consultants SET resume_text = ?, resume_ref = ?, embedding = ? WHERE id = ?`,
		resumeText, resumeRef, encodeFloat32s(vec), id,
	)
	if err != nil {
		return upstreamErr("updating resume", err)
	}
	return nil
}

// idScore holds only the id and similarity during the scan phase of
// SearchSimilar. Full records are fetched only for top-K winners.
type idScore struct {
	ID    string
	Score float32
}

// SearchSimilar embeds the query text and returns up to limit consultants
// ordered by cosine similarity, most similar first. Records failing
// validation are skipped with a warning; the batch continues.
func (s *SQLiteStore) SearchSimilar(ctx context.Context, queryText string, limit int) ([]match.Candidate, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, upstreamErr("embedding query", err)
	}
	queryNorm := norm(vec)
	if queryNorm == 0 {
		return nil, nil
	}

	// Phase 1: scan only id + embedding to find the top-K candidates.
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM consultants WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, upstreamErr("querying embeddings", err)
	}
	defer rows.Close()

	h := &idScoreHeap{}
	heap.Init(h)

	var buf []float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, upstreamErr("scanning row", err)
		}
		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			slog.Warn("skipping consultant with corrupt embedding", "id", id, "error", err)
			continue
		}

		score := cosine(vec, buf, queryNorm)
		if h.Len() < limit {
			heap.Push(h, idScore{ID: id, Score: score})
		} else if score > (*h)[0].Score {
			(*h)[0] = idScore{ID: id, Score: score}
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, upstreamErr("iterating rows", err)
	}
	if h.Len() == 0 {
		return nil, nil
	}

	// Phase 2: fetch and validate full records for the winners.
	scores := make(map[string]float32, h.Len())
	topIDs := make([]string, h.Len())
	for i := len(topIDs) - 1; i >= 0; i-- {
		item := heap.Pop(h).(idScore)
		topIDs[i] = item.ID
		scores[item.ID] = item.Score
	}

	consultants, err := s.getByIDs(ctx, topIDs)
	if err != nil {
		return nil, err
	}

	candidates := make([]match.Candidate, 0, len(consultants))
	for _, c := range consultants {
		candidates = append(candidates, match.Candidate{
			Consultant: c,
			Similarity: scores[c.ID],
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	return candidates, nil
}

// GetAll returns every valid consultant, oldest first.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]match.Consultant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, skills, availability, experience, education, resume_ref
		FROM consultants ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, upstreamErr("querying consultants", err)
	}
	defer rows.Close()

	return scanConsultants(rows)
}

// Get returns a single consultant by id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (match.Consultant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, skills, availability, experience, education, resume_ref
		FROM consultants WHERE id = ?`, id)

	c, err := scanConsultant(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return match.Consultant{}, fmt.Errorf("consultant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return match.Consultant{}, upstreamErr("querying consultant", err)
	}
	return c, nil
}

// Count returns the number of stored consultants.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM consultants").Scan(&count); err != nil {
		return 0, upstreamErr("counting consultants", err)
	}
	return count, nil
}

func (s *SQLiteStore) getByIDs(ctx context.Context, ids []string) ([]match.Consultant, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, name, email, skills, availability, experience, education, resume_ref
		FROM consultants WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, upstreamErr("fetching consultants", err)
	}
	defer rows.Close()

	return scanConsultants(rows)
}

// scanConsultants reads consultant rows, validating each at the store
// boundary. A malformed record is logged and skipped, not fatal.
func scanConsultants(rows *sql.Rows) ([]match.Consultant, error) {
	var out []match.Consultant
	for rows.Next() {
		c, err := scanConsultant(rows.Scan)
		if err != nil {
			if ie, ok := errAsIntegrity(err); ok {
				slog.Warn("skipping malformed consultant record", "id", ie.ID, "reason", ie.Reason)
				continue
			}
			return nil, upstreamErr("scanning consultant", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// scanConsultant decodes one row into the strict Consultant shape.
func scanConsultant(scan func(...any) error) (match.Consultant, error) {
	var c match.Consultant
	var skillsJSON string
	if err := scan(&c.ID, &c.Name, &c.Email, &skillsJSON, &c.Availability, &c.Experience, &c.Education, &c.ResumeRef); err != nil {
		return match.Consultant{}, err
	}
	if err := json.Unmarshal([]byte(skillsJSON), &c.Skills); err != nil {
		return match.Consultant{}, &match.IntegrityError{ID: c.ID, Reason: "invalid skills JSON"}
	}
	if err := c.Validate(); err != nil {
		return match.Consultant{}, err
	}
	return c, nil
}

func errAsIntegrity(err error) (*match.IntegrityError, bool) {
	var ie *match.IntegrityError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing it to avoid per-row allocations during search scans.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * |b|). aNorm is the precomputed L2
// norm of the query vector.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// idScoreHeap is a min-heap of idScore used to track top-K candidates
// during the scan phase.
type idScoreHeap []idScore

func (h idScoreHeap) Len() int            { return len(h) }
func (h idScoreHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h idScoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idScoreHeap) Push(x interface{}) { *h = append(*h, x.(idScore)) }
func (h *idScoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
