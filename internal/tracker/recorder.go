package tracker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/discoverylog"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/store"
)

// Recorder is the idempotent write path shared by the walker and the
// live handler. Every fact becomes keyed upserts plus a membership link;
// the link's created flag alone decides whether a discovery-log line is
// written, so replayed or concurrently duplicated facts never double-log.
type Recorder struct {
	store  *store.Store
	log    *discoverylog.Log
	logger *slog.Logger
}

// NewRecorder wires the write path. A nil logger falls back to the
// process default.
func NewRecorder(st *store.Store, dl *discoverylog.Log, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: st, log: dl, logger: logger}
}

// Record applies one fact. Facts without an identity or group carry no
// discoverable membership and are dropped.
func (r *Recorder) Record(f Fact) error {
	if f.IdentityID == "" || f.GroupID == "" {
		return nil
	}
	if err := r.store.UpsertIdentity(f.IdentityID, f.DisplayName); err != nil {
		return fmt.Errorf("upsert identity %s: %w", f.IdentityID, err)
	}
	if err := r.store.UpsertGroup(f.GroupID, f.GroupName); err != nil {
		return fmt.Errorf("upsert group %s: %w", f.GroupID, err)
	}
	created, err := r.store.Link(f.IdentityID, f.GroupID)
	if err != nil {
		return fmt.Errorf("link %s to %s: %w", f.IdentityID, f.GroupID, err)
	}
	if !created {
		return nil
	}
	entry := discoverylog.Entry{
		Timestamp:   time.Now(),
		DisplayName: f.DisplayName,
		IdentityID:  f.IdentityID,
		GroupName:   f.GroupName,
		Action:      f.Detail,
	}
	if err := r.log.Append(entry); err != nil {
		return fmt.Errorf("discovery log append: %w", err)
	}
	r.logger.Info("discovered",
		"identity", f.IdentityID,
		"name", f.DisplayName,
		"group", f.GroupName,
		"action", string(f.Action))
	return nil
}
