package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/discoverylog"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/store"
)

type historyCall struct {
	channelID string
	after     string
	limit     int
}

type fakeSession struct {
	groups    []GroupRef
	channels  map[string][]ChannelRef
	messages  map[string][]Message // oldest first
	reactors  map[string][]string  // channel|message|emoji
	profiles  map[string]Identity
	boosters  map[string][]Identity
	forbidden map[string]bool
	failAfter string // history request with this after value errors

	historyCalls []historyCall
	resolveCalls int
}

func (f *fakeSession) Groups(ctx context.Context) ([]GroupRef, error) {
	return f.groups, nil
}

func (f *fakeSession) Group(ctx context.Context, id string) (GroupRef, error) {
	for _, g := range f.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return GroupRef{}, fmt.Errorf("unknown group %s", id)
}

func (f *fakeSession) Channels(ctx context.Context, groupID string) ([]ChannelRef, error) {
	return f.channels[groupID], nil
}

func (f *fakeSession) MessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]Message, error) {
	f.historyCalls = append(f.historyCalls, historyCall{channelID, afterID, limit})
	if f.forbidden[channelID] {
		return nil, ErrForbidden
	}
	if f.failAfter != "" && afterID == f.failAfter {
		return nil, errors.New("rate limited")
	}
	all := f.messages[channelID]
	start := 0
	if afterID != "" {
		for i, m := range all {
			if m.ID == afterID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeSession) Reactors(ctx context.Context, channelID, messageID, emoji string) ([]string, error) {
	return f.reactors[channelID+"|"+messageID+"|"+emoji], nil
}

func (f *fakeSession) ResolveIdentity(ctx context.Context, id string) (Identity, error) {
	f.resolveCalls++
	ident, ok := f.profiles[id]
	if !ok {
		return Identity{}, fmt.Errorf("unknown identity %s", id)
	}
	return ident, nil
}

func (f *fakeSession) Boosters(ctx context.Context, groupID string) ([]Identity, error) {
	return f.boosters[groupID], nil
}

type testPipeline struct {
	store  *store.Store
	log    *discoverylog.Log
	rec    *Recorder
	logger *slog.Logger
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dl := discoverylog.New(filepath.Join(dir, "logs.txt"))
	return &testPipeline{
		store:  st,
		log:    dl,
		rec:    NewRecorder(st, dl, logger),
		logger: logger,
	}
}

func messageFrom(id, authorID string) Message {
	return Message{ID: id, Author: Identity{ID: authorID, DisplayName: "user " + authorID}}
}

func TestWalkerResumesFromStoredCursor(t *testing.T) {
	p := newTestPipeline(t)
	g := GroupRef{ID: "g1", Name: "guild one"}

	sess := &fakeSession{
		groups:   []GroupRef{g},
		channels: map[string][]ChannelRef{"g1": {{ID: "c1", Name: "general"}}},
		messages: map[string][]Message{},
	}
	for i := 1; i <= 5; i++ {
		sess.messages["c1"] = append(sess.messages["c1"], messageFrom(fmt.Sprintf("m%d", i), fmt.Sprintf("u%d", i)))
	}

	w := NewWalker(sess, p.store, p.rec, p.logger, 5)
	if err := w.ScanGroup(context.Background(), g); err != nil {
		t.Fatalf("first run: %v", err)
	}
	cursor, ok, err := p.store.GetCursor("c1")
	if err != nil || !ok || cursor != "m5" {
		t.Fatalf("expected cursor m5 after first run, got %q ok=%v err=%v", cursor, ok, err)
	}
	entries, err := p.log.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 discoveries after first run, got %d", len(entries))
	}

	// New history arrives; a second run must only request past m5 and
	// must not re-emit facts for m1..m5.
	for i := 6; i <= 10; i++ {
		sess.messages["c1"] = append(sess.messages["c1"], messageFrom(fmt.Sprintf("m%d", i), fmt.Sprintf("u%d", i)))
	}
	sess.historyCalls = nil
	if err := w.ScanGroup(context.Background(), g); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(sess.historyCalls) == 0 {
		t.Fatalf("expected history requests in second run")
	}
	if sess.historyCalls[0].after != "m5" {
		t.Fatalf("second run started at %q, want m5", sess.historyCalls[0].after)
	}
	entries, err = p.log.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 discoveries total, got %d", len(entries))
	}
	dupes, err := p.log.Duplicates()
	if err != nil {
		t.Fatalf("duplicates: %v", err)
	}
	if len(dupes) != 0 {
		t.Fatalf("resume re-emitted facts: %+v", dupes)
	}
}

func TestWalkerFlushesCursorPerPage(t *testing.T) {
	p := newTestPipeline(t)
	g := GroupRef{ID: "g1", Name: "guild one"}

	sess := &fakeSession{
		groups:    []GroupRef{g},
		channels:  map[string][]ChannelRef{"g1": {{ID: "c1", Name: "general"}}},
		messages:  map[string][]Message{},
		failAfter: "m4",
	}
	for i := 1; i <= 6; i++ {
		sess.messages["c1"] = append(sess.messages["c1"], messageFrom(fmt.Sprintf("m%d", i), fmt.Sprintf("u%d", i)))
	}

	w := NewWalker(sess, p.store, p.rec, p.logger, 2)
	err := w.ScanGroup(context.Background(), g)
	if err == nil {
		t.Fatalf("expected transient failure to surface")
	}

	// Pages m1-m2 and m3-m4 were flushed before the failing request, so
	// the stored cursor is valid for a later retry.
	cursor, ok, getErr := p.store.GetCursor("c1")
	if getErr != nil || !ok || cursor != "m4" {
		t.Fatalf("expected cursor m4 after failure, got %q ok=%v err=%v", cursor, ok, getErr)
	}

	sess.failAfter = ""
	sess.historyCalls = nil
	if err := w.ScanGroup(context.Background(), g); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sess.historyCalls[0].after != "m4" {
		t.Fatalf("retry started at %q, want m4", sess.historyCalls[0].after)
	}
	cursor, _, _ = p.store.GetCursor("c1")
	if cursor != "m6" {
		t.Fatalf("expected cursor m6 after retry, got %q", cursor)
	}
}

func TestWalkerSkipsForbiddenChannel(t *testing.T) {
	p := newTestPipeline(t)
	g := GroupRef{ID: "g1", Name: "guild one"}

	sess := &fakeSession{
		groups: []GroupRef{g},
		channels: map[string][]ChannelRef{
			"g1": {{ID: "locked", Name: "mods"}, {ID: "open", Name: "general"}},
		},
		messages:  map[string][]Message{"open": {messageFrom("m1", "u1")}},
		forbidden: map[string]bool{"locked": true},
	}

	w := NewWalker(sess, p.store, p.rec, p.logger, 10)
	if err := w.ScanGroup(context.Background(), g); err != nil {
		t.Fatalf("scan: %v", err)
	}

	// The open channel was still processed.
	total, err := p.store.CountIdentities()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected discovery from the open channel, got %d identities", total)
	}
	if _, ok, _ := p.store.GetCursor("locked"); ok {
		t.Fatalf("forbidden channel must not gain a cursor")
	}
}

func TestWalkerReactorsResolvedOnceAndBotsSkipped(t *testing.T) {
	p := newTestPipeline(t)
	g := GroupRef{ID: "g1", Name: "guild one"}

	sess := &fakeSession{
		groups:   []GroupRef{g},
		channels: map[string][]ChannelRef{"g1": {{ID: "c1", Name: "general"}}},
		messages: map[string][]Message{
			"c1": {
				{ID: "m1", Author: Identity{ID: "u1", DisplayName: "author"}, Reactions: []Reaction{{Emoji: "👍"}}},
				{ID: "m2", Author: Identity{ID: "u1", DisplayName: "author"}, Reactions: []Reaction{{Emoji: "👍"}}},
			},
		},
		reactors: map[string][]string{
			"c1|m1|👍": {"r1", "b1"},
			"c1|m2|👍": {"r1"},
		},
		profiles: map[string]Identity{
			"r1": {ID: "r1", DisplayName: "reactor"},
			"b1": {ID: "b1", DisplayName: "helper", Bot: true},
		},
	}

	w := NewWalker(sess, p.store, p.rec, p.logger, 10)
	if err := w.ScanGroup(context.Background(), g); err != nil {
		t.Fatalf("scan: %v", err)
	}

	// r1 and b1 once each; the repeat r1 reaction hits the cache.
	if sess.resolveCalls != 2 {
		t.Fatalf("expected 2 identity lookups, got %d", sess.resolveCalls)
	}
	matches, err := p.store.FindIdentity("r1")
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected reactor recorded, got %+v err=%v", matches, err)
	}
	matches, err = p.store.FindIdentity("b1")
	if err != nil {
		t.Fatalf("find bot: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("bot reactor must not be recorded, got %+v", matches)
	}
}

func TestWalkerRecordsBoosters(t *testing.T) {
	p := newTestPipeline(t)
	g := GroupRef{ID: "g1", Name: "guild one"}

	sess := &fakeSession{
		groups:   []GroupRef{g},
		channels: map[string][]ChannelRef{"g1": {}},
		boosters: map[string][]Identity{
			"g1": {{ID: "u9", DisplayName: "patron"}, {ID: "b1", DisplayName: "bot", Bot: true}},
		},
	}

	w := NewWalker(sess, p.store, p.rec, p.logger, 10)
	if err := w.ScanGroup(context.Background(), g); err != nil {
		t.Fatalf("scan: %v", err)
	}

	entries, err := p.log.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one booster discovery, got %d", len(entries))
	}
	if entries[0].IdentityID != "u9" || entries[0].Action != "is a booster" {
		t.Fatalf("unexpected booster entry: %+v", entries[0])
	}
}

func TestWalkerStopsBetweenPagesOnCancel(t *testing.T) {
	p := newTestPipeline(t)
	g := GroupRef{ID: "g1", Name: "guild one"}

	sess := &fakeSession{
		groups:   []GroupRef{g},
		channels: map[string][]ChannelRef{"g1": {{ID: "c1", Name: "general"}}},
		messages: map[string][]Message{"c1": {messageFrom("m1", "u1"), messageFrom("m2", "u2")}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewWalker(sess, p.store, p.rec, p.logger, 1)
	err := w.ScanGroup(ctx, g)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(sess.historyCalls) != 0 {
		t.Fatalf("cancelled walker must not request pages")
	}
}
