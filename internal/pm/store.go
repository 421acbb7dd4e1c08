// Package pm implements the Project Memory store (component F): an
// embedded-SQL-backed, append-only persistence layer for
// models.ProjectMemory, grounded on the teacher's sqlite-backed memory
// backend (internal/memory/backend/sqlitevec) but keyed by project_id
// and event-logged the way internal/audit logs durable events.
package pm

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3"

	"github.com/daxcore/dax/pkg/models"
)

// Store persists and versions ProjectMemory per project_id.
type Store interface {
	Load(ctx context.Context, projectID string) (models.ProjectMemory, error)
	Save(ctx context.Context, projectID string, update models.ProjectMemory, actor, command string) (models.ProjectMemory, error)
	Undo(ctx context.Context, projectID, actor string) (models.ProjectMemory, error)
	Events(ctx context.Context, projectID string, limit int) ([]models.PMEvent, error)
	WriteCount() int64
}

// SQLStore is the embedded-SQL implementation of Store.
type SQLStore struct {
	db *sql.DB

	mu         sync.Mutex
	writeCount int64
}

// Open creates (or attaches to) an embedded SQL database at path and
// ensures the projects/pm_state/pm_events schema exists. path may be
// ":memory:" for an ephemeral store.
func Open(path string) (*SQLStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("pm: open database: %w", err)
	}
	s := &SQLStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			project_id TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS pm_state (
			project_id TEXT PRIMARY KEY,
			state_json TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pm_events (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			ts DATETIME NOT NULL,
			actor TEXT,
			command TEXT,
			event_type TEXT NOT NULL,
			before_json TEXT NOT NULL,
			after_json TEXT NOT NULL,
			note TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pm_events_project ON pm_events(project_id, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("pm: init schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// WriteCount returns the number of Save/Undo calls that have completed
// since the store was opened, for tests asserting write frequency.
func (s *SQLStore) WriteCount() int64 {
	return atomic.LoadInt64(&s.writeCount)
}

// Load returns the ProjectMemory for projectID, or a fresh zero-value
// one (with ProjectID set) if none has been saved yet.
func (s *SQLStore) Load(ctx context.Context, projectID string) (models.ProjectMemory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT state_json FROM pm_state WHERE project_id = ?`, projectID)
	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return models.ProjectMemory{ProjectID: projectID}, nil
	}
	if err != nil {
		return models.ProjectMemory{}, fmt.Errorf("pm: load %s: %w", projectID, err)
	}
	return decodePM(raw)
}

// Save computes next = merge(current, update), persists it, and
// appends a PMEventUpdate. It always deep-merges Constraints and
// Preferences field by field, replaces RecentOutcomes/RAO wholesale
// when the update supplies them, and stamps LastUpdated.
func (s *SQLStore) Save(ctx context.Context, projectID string, update models.ProjectMemory, actor, command string) (models.ProjectMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx, projectID)
	if err != nil {
		return models.ProjectMemory{}, err
	}

	next := Merge(current, update)
	next.ProjectID = projectID

	if err := s.persist(ctx, projectID, current, next, actor, command, models.PMEventUpdate, ""); err != nil {
		return models.ProjectMemory{}, err
	}
	return next, nil
}

// Undo reapplies the before-snapshot of the newest event that is not
// itself an undo or rao_purge, and records a new PMEventUndo — history
// is append-only; Undo never rewinds the log itself.
func (s *SQLStore) Undo(ctx context.Context, projectID, actor string) (models.ProjectMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT before_json, event_type FROM pm_events
		WHERE project_id = ? ORDER BY ts DESC, rowid DESC
	`, projectID)
	if err != nil {
		return models.ProjectMemory{}, fmt.Errorf("pm: undo query %s: %w", projectID, err)
	}
	defer rows.Close()

	var beforeJSON string
	found := false
	for rows.Next() {
		var raw, eventType string
		if err := rows.Scan(&raw, &eventType); err != nil {
			return models.ProjectMemory{}, err
		}
		if models.PMEventType(eventType) == models.PMEventUndo || models.PMEventType(eventType) == models.PMEventRAOPurge {
			continue
		}
		beforeJSON = raw
		found = true
		break
	}
	if err := rows.Err(); err != nil {
		return models.ProjectMemory{}, err
	}
	if !found {
		return s.Load(ctx, projectID)
	}

	current, err := s.Load(ctx, projectID)
	if err != nil {
		return models.ProjectMemory{}, err
	}
	restored, err := decodePM(beforeJSON)
	if err != nil {
		return models.ProjectMemory{}, err
	}
	restored.ProjectID = projectID

	if err := s.persist(ctx, projectID, current, restored, actor, "", models.PMEventUndo, "reverted to previous snapshot"); err != nil {
		return models.ProjectMemory{}, err
	}
	return restored, nil
}

func (s *SQLStore) persist(ctx context.Context, projectID string, before, after models.ProjectMemory, actor, command string, eventType models.PMEventType, note string) error {
	after.LastUpdated = now()

	stateJSON, err := json.Marshal(after)
	if err != nil {
		return fmt.Errorf("pm: encode state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pm: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO projects (project_id) VALUES (?)`, projectID); err != nil {
		return fmt.Errorf("pm: ensure project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pm_state (project_id, state_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at
	`, projectID, string(stateJSON), after.LastUpdated); err != nil {
		return fmt.Errorf("pm: upsert state: %w", err)
	}

	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return fmt.Errorf("pm: encode before snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pm_events (id, project_id, ts, actor, command, event_type, before_json, after_json, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, "pme_"+uuid.NewString(), projectID, after.LastUpdated, actor, command, string(eventType), string(beforeJSON), string(stateJSON), note); err != nil {
		return fmt.Errorf("pm: insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pm: commit: %w", err)
	}
	atomic.AddInt64(&s.writeCount, 1)
	return nil
}

// Events returns up to limit of a project's most recent PMEvents,
// newest first.
func (s *SQLStore) Events(ctx context.Context, projectID string, limit int) ([]models.PMEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, ts, actor, command, event_type, before_json, after_json, note
		FROM pm_events WHERE project_id = ? ORDER BY ts DESC, rowid DESC LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("pm: events query: %w", err)
	}
	defer rows.Close()

	var events []models.PMEvent
	for rows.Next() {
		var e models.PMEvent
		var eventType, beforeJSON, afterJSON string
		var actor, command, note sql.NullString
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.TS, &actor, &command, &eventType, &beforeJSON, &afterJSON, &note); err != nil {
			return nil, err
		}
		e.Actor = actor.String
		e.Command = command.String
		e.Note = note.String
		e.EventType = models.PMEventType(eventType)
		before, err := decodePM(beforeJSON)
		if err != nil {
			return nil, err
		}
		after, err := decodePM(afterJSON)
		if err != nil {
			return nil, err
		}
		e.Before = before
		e.After = after
		events = append(events, e)
	}
	return events, rows.Err()
}

// now is overridable in tests needing deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// legacyPM mirrors models.ProjectMemory but leaves AlwaysAllow as raw
// JSON so decodePM can normalize the legacy bare-string form before
// producing a typed models.ProjectMemory.
type legacyPM struct {
	ProjectID   string `json:"project_id"`
	Charter     string `json:"charter,omitempty"`
	Constraints struct {
		NeverTouch                    []string        `json:"never_touch,omitempty"`
		RequireApprovalFor            []string        `json:"require_approval_for,omitempty"`
		AlwaysAllow                   json.RawMessage `json:"always_allow,omitempty"`
		MaxFiles                      *int            `json:"max_files,omitempty"`
		MaxLOC                        *int            `json:"max_loc,omitempty"`
		RequireApprovalForScopeExpand bool            `json:"require_approval_for_scope_expansion,omitempty"`
	} `json:"constraints"`
	Preferences    models.Preferences      `json:"preferences"`
	RecentOutcomes []models.RecentOutcome  `json:"recent_outcomes,omitempty"`
	RAO            []models.RAOEntry       `json:"rao,omitempty"`
	LastUpdated    time.Time               `json:"last_updated"`
}

// decodePM unmarshals a persisted state blob, normalizing legacy
// always_allow entries of bare-string form into {kind: "tool",
// pattern: string}, per spec.md §4.6.
func decodePM(raw string) (models.ProjectMemory, error) {
	var legacy legacyPM
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return models.ProjectMemory{}, fmt.Errorf("pm: decode state: %w", err)
	}

	pm := models.ProjectMemory{
		ProjectID: legacy.ProjectID,
		Charter:   legacy.Charter,
		Constraints: models.Constraints{
			NeverTouch:                    legacy.Constraints.NeverTouch,
			RequireApprovalFor:            legacy.Constraints.RequireApprovalFor,
			MaxFiles:                      legacy.Constraints.MaxFiles,
			MaxLOC:                        legacy.Constraints.MaxLOC,
			RequireApprovalForScopeExpand: legacy.Constraints.RequireApprovalForScopeExpand,
		},
		Preferences:    legacy.Preferences,
		RecentOutcomes: legacy.RecentOutcomes,
		RAO:            legacy.RAO,
		LastUpdated:    legacy.LastUpdated,
	}

	rules, err := normalizeAlwaysAllow(legacy.Constraints.AlwaysAllow)
	if err != nil {
		return models.ProjectMemory{}, err
	}
	pm.Constraints.AlwaysAllow = rules
	return pm, nil
}

// normalizeAlwaysAllow rewrites a mixed list of legacy bare-string
// entries and current {kind, pattern} objects into typed AllowRules.
func normalizeAlwaysAllow(raw json.RawMessage) ([]models.AllowRule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("pm: decode always_allow: %w", err)
	}

	rules := make([]models.AllowRule, 0, len(items))
	for _, item := range items {
		var asString string
		if err := json.Unmarshal(item, &asString); err == nil {
			rules = append(rules, models.AllowRule{Kind: models.AllowRuleTool, Pattern: asString})
			continue
		}
		var rule models.AllowRule
		if err := json.Unmarshal(item, &rule); err != nil {
			return nil, fmt.Errorf("pm: decode always_allow entry: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
