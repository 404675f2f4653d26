// Package store provides SQLite persistence for entities, keywords, mentions,
// analyses and recommendations.
//
// Uniqueness of (entity_id, url) for mentions and of mention_id for analyses is
// enforced by the schema, so concurrent ingestion cycles racing on the same
// item resolve at the insert rather than in application code.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Store handles SQLite persistence. Safe for concurrent use; the underlying
// sql.DB handles pooling, and multi-statement writes run in transactions.
type Store struct {
	db *sql.DB
}

// Open creates a new Store at the given database path, creating tables as
// needed. Use ":memory:" for an in-memory database (tests).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logrus.Debugf("Database initialized at %s", dbPath)
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		segment TEXT NOT NULL DEFAULT 'other',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS keywords (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id INTEGER NOT NULL REFERENCES entities(id),
		term TEXT NOT NULL COLLATE NOCASE,
		UNIQUE(entity_id, term)
	);

	CREATE INDEX IF NOT EXISTS idx_keywords_entity ON keywords(entity_id);

	CREATE TABLE IF NOT EXISTS mentions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id INTEGER NOT NULL REFERENCES entities(id),
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		published_at DATETIME NOT NULL,
		inserted_at DATETIME NOT NULL,
		UNIQUE(entity_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_mentions_entity_inserted ON mentions(entity_id, inserted_at DESC);

	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mention_id INTEGER NOT NULL UNIQUE REFERENCES mentions(id),
		label TEXT NOT NULL,
		confidence REAL NOT NULL,
		contribution REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recommendations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id INTEGER NOT NULL REFERENCES entities(id),
		window_start DATETIME NOT NULL,
		window_end DATETIME NOT NULL,
		summary TEXT NOT NULL,
		actions TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recommendations_entity_created ON recommendations(entity_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateEntity inserts a new monitored entity
func (s *Store) CreateEntity(name string, segment models.Segment) (models.Entity, error) {
	res, err := s.db.Exec(
		`INSERT INTO entities (name, segment, active) VALUES (?, ?, 1)`,
		name, string(segment),
	)
	if err != nil {
		return models.Entity{}, fmt.Errorf("insert entity %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Entity{}, err
	}

	return models.Entity{ID: id, Name: name, Segment: segment, Active: true}, nil
}

// EnsureEntity returns the entity with the given name, creating it if missing.
// Used by the bootstrap seeding path; segment is only applied on creation.
func (s *Store) EnsureEntity(name string, segment models.Segment) (models.Entity, error) {
	if _, err := s.db.Exec(
		`INSERT INTO entities (name, segment, active) VALUES (?, ?, 1)
		 ON CONFLICT(name) DO NOTHING`,
		name, string(segment),
	); err != nil {
		return models.Entity{}, fmt.Errorf("ensure entity %q: %w", name, err)
	}

	var e models.Entity
	var seg string
	err := s.db.QueryRow(
		`SELECT id, name, segment, active FROM entities WHERE name = ?`, name,
	).Scan(&e.ID, &e.Name, &seg, &e.Active)
	if err != nil {
		return models.Entity{}, fmt.Errorf("load entity %q: %w", name, err)
	}
	e.Segment = models.Segment(seg)
	return e, nil
}

// GetEntity loads one entity with its keywords
func (s *Store) GetEntity(id int64) (models.Entity, error) {
	var e models.Entity
	var seg string
	err := s.db.QueryRow(
		`SELECT id, name, segment, active FROM entities WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &seg, &e.Active)
	if err != nil {
		return models.Entity{}, fmt.Errorf("load entity %d: %w", id, err)
	}
	e.Segment = models.Segment(seg)

	keywords, err := s.keywordsFor(id)
	if err != nil {
		return models.Entity{}, err
	}
	e.Keywords = keywords
	return e, nil
}

// SetEntityActive toggles the active flag for an entity
func (s *Store) SetEntityActive(id int64, active bool) error {
	_, err := s.db.Exec(`UPDATE entities SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update entity %d: %w", id, err)
	}
	return nil
}

// ActiveEntities returns all active entities with their keywords loaded
func (s *Store) ActiveEntities() ([]models.Entity, error) {
	rows, err := s.db.Query(
		`SELECT id, name, segment FROM entities WHERE active = 1 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active entities: %w", err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		var e models.Entity
		var seg string
		if err := rows.Scan(&e.ID, &e.Name, &seg); err != nil {
			return nil, err
		}
		e.Segment = models.Segment(seg)
		e.Active = true
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entities {
		keywords, err := s.keywordsFor(entities[i].ID)
		if err != nil {
			return nil, err
		}
		entities[i].Keywords = keywords
	}

	return entities, nil
}

func (s *Store) keywordsFor(entityID int64) ([]models.Keyword, error) {
	rows, err := s.db.Query(
		`SELECT id, entity_id, term FROM keywords WHERE entity_id = ? ORDER BY term`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("query keywords for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var keywords []models.Keyword
	for rows.Next() {
		var k models.Keyword
		if err := rows.Scan(&k.ID, &k.EntityID, &k.Term); err != nil {
			return nil, err
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

// AddKeyword attaches a relevance term to an entity. Adding an existing term
// (case-insensitive) is a no-op.
func (s *Store) AddKeyword(entityID int64, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return fmt.Errorf("keyword term is empty")
	}
	_, err := s.db.Exec(
		`INSERT INTO keywords (entity_id, term) VALUES (?, ?)
		 ON CONFLICT(entity_id, term) DO NOTHING`,
		entityID, term,
	)
	if err != nil {
		return fmt.Errorf("insert keyword %q: %w", term, err)
	}
	return nil
}

// DeleteKeyword removes a keyword by ID
func (s *Store) DeleteKeyword(id int64) error {
	_, err := s.db.Exec(`DELETE FROM keywords WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete keyword %d: %w", id, err)
	}
	return nil
}

// MentionExists reports whether a mention with the same (entity_id, url) has
// been stored. Fast-path dedup check; the UNIQUE constraint remains the
// authority under concurrent writers.
func (s *Store) MentionExists(entityID int64, url string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM mentions WHERE entity_id = ? AND url = ?`, entityID, url,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check mention existence: %w", err)
	}
	return true, nil
}

// InsertMentionWithAnalysis stores a mention and its analysis in one
// transaction: both become visible or neither does. Returns false when the
// mention already existed, in which case nothing is written.
func (s *Store) InsertMentionWithAnalysis(m models.Mention, a models.Analysis) (models.Mention, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return m, false, err
	}
	defer tx.Rollback()

	inserted, err := insertMentionTx(tx, &m)
	if err != nil {
		return m, false, err
	}
	if !inserted {
		return m, false, nil
	}

	a.MentionID = m.ID
	if _, err := insertAnalysisTx(tx, &a); err != nil {
		return m, false, err
	}

	if err := tx.Commit(); err != nil {
		return m, false, err
	}
	return m, true, nil
}

// InsertMention stores a mention without an analysis (classifier failure
// path; the backlog pass picks it up later). Returns false on duplicate.
func (s *Store) InsertMention(m models.Mention) (models.Mention, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return m, false, err
	}
	defer tx.Rollback()

	inserted, err := insertMentionTx(tx, &m)
	if err != nil {
		return m, false, err
	}
	if err := tx.Commit(); err != nil {
		return m, false, err
	}
	return m, inserted, nil
}

func insertMentionTx(tx *sql.Tx, m *models.Mention) (bool, error) {
	res, err := tx.Exec(
		`INSERT INTO mentions (entity_id, source, title, url, published_at, inserted_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(entity_id, url) DO NOTHING`,
		m.EntityID, m.Source, m.Title, m.URL, m.PublishedAt.UTC(), m.InsertedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert mention: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	m.ID = id
	return true, nil
}

func insertAnalysisTx(tx *sql.Tx, a *models.Analysis) (bool, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := tx.Exec(
		`INSERT INTO analyses (mention_id, label, confidence, contribution, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(mention_id) DO NOTHING`,
		a.MentionID, string(a.Label), a.Confidence, a.Contribution, a.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	a.ID = id
	return true, nil
}

// InsertAnalysis backfills the analysis for an existing mention. Returns false
// when the mention already has one (concurrent backfill or ingestion won).
func (s *Store) InsertAnalysis(a models.Analysis) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	inserted, err := insertAnalysisTx(tx, &a)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return inserted, nil
}

// MentionsWithoutAnalysis returns mentions lacking an analysis, oldest first
func (s *Store) MentionsWithoutAnalysis(limit int) ([]models.Mention, error) {
	rows, err := s.db.Query(
		`SELECT m.id, m.entity_id, m.source, m.title, m.url, m.published_at, m.inserted_at
		 FROM mentions m
		 LEFT JOIN analyses a ON a.mention_id = m.id
		 WHERE a.id IS NULL
		 ORDER BY m.inserted_at ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query unanalyzed mentions: %w", err)
	}
	defer rows.Close()

	return scanMentions(rows)
}

func scanMentions(rows *sql.Rows) ([]models.Mention, error) {
	var mentions []models.Mention
	for rows.Next() {
		var m models.Mention
		if err := rows.Scan(&m.ID, &m.EntityID, &m.Source, &m.Title, &m.URL, &m.PublishedAt, &m.InsertedAt); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

// AnalysisRow is an analysis joined with its mention's inserted timestamp,
// which is what the aggregation layer weighs by.
type AnalysisRow struct {
	Label        models.SentimentLabel
	Confidence   float64
	Contribution float64
	InsertedAt   time.Time
}

// AnalysesInWindow returns all analyses for an entity whose mention was
// inserted at or after the given time
func (s *Store) AnalysesInWindow(entityID int64, since time.Time) ([]AnalysisRow, error) {
	rows, err := s.db.Query(
		`SELECT a.label, a.confidence, a.contribution, m.inserted_at
		 FROM mentions m
		 JOIN analyses a ON a.mention_id = m.id
		 WHERE m.entity_id = ? AND m.inserted_at >= ?`,
		entityID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query analyses in window: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRow
	for rows.Next() {
		var r AnalysisRow
		var label string
		if err := rows.Scan(&label, &r.Confidence, &r.Contribution, &r.InsertedAt); err != nil {
			return nil, err
		}
		r.Label = models.SentimentLabel(label)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountNegativesSince counts negative analyses for an entity in a window
func (s *Store) CountNegativesSince(entityID int64, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*)
		 FROM mentions m
		 JOIN analyses a ON a.mention_id = m.id
		 WHERE m.entity_id = ? AND m.inserted_at >= ? AND a.label = ?`,
		entityID, since.UTC(), string(models.SentimentNegative),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count negatives: %w", err)
	}
	return count, nil
}

// TitleSentiment pairs a mention title with its sentiment label
type TitleSentiment struct {
	Title string
	Label models.SentimentLabel
}

// TitlesInWindow returns (title, label) pairs for analyzed mentions of an
// entity in a window, newest first
func (s *Store) TitlesInWindow(entityID int64, since time.Time) ([]TitleSentiment, error) {
	rows, err := s.db.Query(
		`SELECT m.title, a.label
		 FROM mentions m
		 JOIN analyses a ON a.mention_id = m.id
		 WHERE m.entity_id = ? AND m.inserted_at >= ?
		 ORDER BY m.inserted_at DESC`,
		entityID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query titles in window: %w", err)
	}
	defer rows.Close()

	var out []TitleSentiment
	for rows.Next() {
		var t TitleSentiment
		var label string
		if err := rows.Scan(&t.Title, &label); err != nil {
			return nil, err
		}
		t.Label = models.SentimentLabel(label)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SourceCountsSince returns mention counts per source for an entity window
func (s *Store) SourceCountsSince(entityID int64, since time.Time) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT source, COUNT(*) FROM mentions
		 WHERE entity_id = ? AND inserted_at >= ?
		 GROUP BY source`,
		entityID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query source counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// InsertRecommendation persists a recommendation snapshot
func (s *Store) InsertRecommendation(rec models.Recommendation) (models.Recommendation, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO recommendations (entity_id, window_start, window_end, summary, actions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.EntityID, rec.WindowStart.UTC(), rec.WindowEnd.UTC(),
		rec.Summary, strings.Join(rec.Actions, "\n"), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return rec, fmt.Errorf("insert recommendation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return rec, err
	}
	rec.ID = id
	return rec, nil
}

// LatestRecommendation returns the most recent recommendation for an entity,
// or nil when none exists
func (s *Store) LatestRecommendation(entityID int64) (*models.Recommendation, error) {
	var rec models.Recommendation
	var actions string
	err := s.db.QueryRow(
		`SELECT id, entity_id, window_start, window_end, summary, actions, created_at
		 FROM recommendations
		 WHERE entity_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		entityID,
	).Scan(&rec.ID, &rec.EntityID, &rec.WindowStart, &rec.WindowEnd, &rec.Summary, &actions, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest recommendation: %w", err)
	}
	if actions != "" {
		rec.Actions = strings.Split(actions, "\n")
	}
	return &rec, nil
}

// MentionCount returns the total number of stored mentions
func (s *Store) MentionCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM mentions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count mentions: %w", err)
	}
	return count, nil
}
