// Package maint implements the operator maintenance operations over the
// fact store and the discovery log: counting, search, duplicate
// detection and removal, and scoped group purge.
package maint

import (
	"errors"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/discoverylog"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/store"
)

// ConfirmToken must be supplied verbatim before any destructive
// operation runs.
const ConfirmToken = "YES"

// ErrNotConfirmed is returned when a destructive operation is invoked
// without the literal confirmation token. Nothing is changed.
var ErrNotConfirmed = errors.New(`destructive operation requires confirmation "YES"`)

// Engine bundles the maintenance operations. Destructive ones run under
// the store's exclusive lock, so they never interleave with the walker
// or the live handler; reads need no coordination.
type Engine struct {
	store *store.Store
	log   *discoverylog.Log
}

func NewEngine(st *store.Store, dl *discoverylog.Log) *Engine {
	return &Engine{store: st, log: dl}
}

// CountIdentities returns the distinct identity total.
func (e *Engine) CountIdentities() (int, error) {
	return e.store.CountIdentities()
}

// Search matches an exact identity id or a case-insensitive display-name
// substring, returning each hit with its group memberships.
func (e *Engine) Search(query string) ([]store.IdentityMatch, error) {
	return e.store.FindIdentity(query)
}

// StoreDuplicates lists identity ids with more than one row. A non-empty
// result means a writer bypassed the store's keyed upserts; it is
// reported, never repaired silently.
func (e *Engine) StoreDuplicates() ([]string, error) {
	return e.store.ListDuplicateIdentities()
}

// LogDuplicates reports identity ids with more than one discovery line.
func (e *Engine) LogDuplicates() ([]discoverylog.Duplicate, error) {
	return e.log.Duplicates()
}

// RemoveStoreDuplicates drops surplus identity rows, keeping the oldest
// per id. Requires the confirmation token.
func (e *Engine) RemoveStoreDuplicates(confirm string) (int, error) {
	if confirm != ConfirmToken {
		return 0, ErrNotConfirmed
	}
	return e.store.DeleteDuplicateIdentities()
}

// RemoveLogDuplicates rewrites the discovery log keeping the first line
// per identity id. Requires the confirmation token.
func (e *Engine) RemoveLogDuplicates(confirm string) (int, error) {
	if confirm != ConfirmToken {
		return 0, ErrNotConfirmed
	}
	return e.log.RemoveDuplicates()
}

// PurgeGroup removes a group, its memberships and any identities left
// without memberships. Discovery log lines for the group stay in place
// as historical record. Requires the confirmation token.
func (e *Engine) PurgeGroup(groupID, confirm string) (store.PurgeResult, error) {
	if confirm != ConfirmToken {
		return store.PurgeResult{}, ErrNotConfirmed
	}
	return e.store.PurgeGroup(groupID)
}
