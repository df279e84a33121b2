// Package store provides the SQLite-backed fact store for discovered
// identities, groups, memberships and per-channel scan cursors.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS identities (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS "groups" (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS memberships (
	identity_id TEXT NOT NULL,
	group_id TEXT NOT NULL,
	PRIMARY KEY (identity_id, group_id)
);
CREATE TABLE IF NOT EXISTS cursors (
	channel_id TEXT PRIMARY KEY,
	last_seen_message_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memberships_group ON memberships(group_id);
`

// Store wraps the tracker database. Producer writes are single keyed
// statements and safe under concurrent use; destructive maintenance
// operations take the exclusive side of the store lock so they never
// interleave with producers.
type Store struct {
	db  *sql.DB
	ops sync.RWMutex
}

// Open opens (or creates) the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying handle for shared read access.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertIdentity inserts the identity or refreshes its display name.
// Last write wins on the name; the id is never duplicated.
func (s *Store) UpsertIdentity(id, displayName string) error {
	s.ops.RLock()
	defer s.ops.RUnlock()
	_, err := s.db.Exec(`
		INSERT INTO identities (id, display_name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name
	`, id, displayName)
	return err
}

// UpsertGroup inserts the group or refreshes its name.
func (s *Store) UpsertGroup(id, name string) error {
	s.ops.RLock()
	defer s.ops.RUnlock()
	_, err := s.db.Exec(`
		INSERT INTO "groups" (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, id, name)
	return err
}

// Link records that the identity was observed in the group and reports
// whether the membership is new. The check-and-set is a single statement,
// so of any number of concurrent Link calls for the same pair, exactly one
// observes created=true. Callers gate discovery-log appends on that flag.
func (s *Store) Link(identityID, groupID string) (bool, error) {
	s.ops.RLock()
	defer s.ops.RUnlock()
	res, err := s.db.Exec(`
		INSERT INTO memberships (identity_id, group_id) VALUES (?, ?)
		ON CONFLICT(identity_id, group_id) DO NOTHING
	`, identityID, groupID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetCursor returns the resume point for a channel, or ok=false when the
// channel has never been scanned.
func (s *Store) GetCursor(channelID string) (string, bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT last_seen_message_id FROM cursors WHERE channel_id = ?`, channelID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// SetCursor overwrites the resume point for a channel.
func (s *Store) SetCursor(channelID, lastSeenMessageID string) error {
	s.ops.RLock()
	defer s.ops.RUnlock()
	_, err := s.db.Exec(`
		INSERT INTO cursors (channel_id, last_seen_message_id) VALUES (?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET last_seen_message_id = excluded.last_seen_message_id
	`, channelID, lastSeenMessageID)
	return err
}

// CountIdentities returns the number of distinct identities ever seen.
func (s *Store) CountIdentities() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM identities`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// IdentityMatch is a search hit together with the identity's group names.
type IdentityMatch struct {
	ID          string
	DisplayName string
	Groups      []string
}

// FindIdentity returns identities whose id equals query or whose display
// name contains it, case-insensitively.
func (s *Store) FindIdentity(query string) ([]IdentityMatch, error) {
	rows, err := s.db.Query(`
		SELECT id, display_name FROM identities
		WHERE id = ? OR instr(lower(display_name), lower(?)) > 0
		ORDER BY display_name ASC, id ASC
	`, query, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []IdentityMatch
	for rows.Next() {
		var m IdentityMatch
		if err := rows.Scan(&m.ID, &m.DisplayName); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range matches {
		groups, err := s.groupNames(matches[i].ID)
		if err != nil {
			return nil, err
		}
		matches[i].Groups = groups
	}
	return matches, nil
}

func (s *Store) groupNames(identityID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT g.name FROM memberships m
		JOIN "groups" g ON m.group_id = g.id
		WHERE m.identity_id = ?
		ORDER BY g.name ASC
	`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListDuplicateIdentities reports identity ids with more than one row.
// The primary key makes this structurally impossible through the store's
// own write path; a non-empty result means an external writer bypassed it.
func (s *Store) ListDuplicateIdentities() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM identities GROUP BY id HAVING COUNT(*) > 1 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteDuplicateIdentities keeps the oldest row per identity id and
// removes the rest. Runs exclusively; returns the number of rows removed.
func (s *Store) DeleteDuplicateIdentities() (int, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	res, err := s.db.Exec(`
		DELETE FROM identities
		WHERE rowid NOT IN (SELECT MIN(rowid) FROM identities GROUP BY id)
	`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PurgeResult reports what a group purge removed.
type PurgeResult struct {
	MembershipsRemoved int
	IdentitiesRemoved  int
}

// PurgeGroup removes every membership of the group, every identity whose
// only membership was in that group, and the group row itself, in one
// transaction. A failure at any point leaves the prior state intact.
func (s *Store) PurgeGroup(groupID string) (PurgeResult, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	var out PurgeResult
	tx, err := s.db.Begin()
	if err != nil {
		return out, err
	}
	defer tx.Rollback()

	// Identities first, while their memberships still identify them.
	res, err := tx.Exec(`
		DELETE FROM identities
		WHERE id IN (SELECT identity_id FROM memberships WHERE group_id = ?)
		  AND NOT EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.identity_id = identities.id AND m.group_id != ?
		  )
	`, groupID, groupID)
	if err != nil {
		return out, fmt.Errorf("purge identities of group %s: %w", groupID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return out, err
	}
	out.IdentitiesRemoved = int(n)

	res, err = tx.Exec(`DELETE FROM memberships WHERE group_id = ?`, groupID)
	if err != nil {
		return out, fmt.Errorf("purge memberships of group %s: %w", groupID, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return out, err
	}
	out.MembershipsRemoved = int(n)

	if _, err := tx.Exec(`DELETE FROM "groups" WHERE id = ?`, groupID); err != nil {
		return out, fmt.Errorf("purge group row %s: %w", groupID, err)
	}
	if err := tx.Commit(); err != nil {
		return PurgeResult{}, err
	}
	return out, nil
}
