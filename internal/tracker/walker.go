package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/store"
)

// DefaultPageSize bounds one history request.
const DefaultPageSize = 100

// Walker replays channel history from the stored cursor forward. The
// cursor is flushed after every processed page and before the next page
// is requested, so an interruption loses at most one page of progress
// and a later run resumes without reprocessing flushed history.
type Walker struct {
	session  Session
	store    *store.Store
	recorder *Recorder
	logger   *slog.Logger
	pageSize int

	// resolved caches reactor profiles for one group pass, since the
	// same account tends to react across many messages.
	resolved map[string]Identity
}

// NewWalker builds a walker. pageSize <= 0 selects DefaultPageSize; a
// nil logger falls back to the process default.
func NewWalker(session Session, st *store.Store, rec *Recorder, logger *slog.Logger, pageSize int) *Walker {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		session:  session,
		store:    st,
		recorder: rec,
		logger:   logger,
		pageSize: pageSize,
	}
}

// ScanAll walks every accessible group.
func (w *Walker) ScanAll(ctx context.Context) error {
	groups, err := w.session.Groups(ctx)
	if err != nil {
		return fmt.Errorf("enumerate groups: %w", err)
	}
	for _, g := range groups {
		if err := w.ScanGroup(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// ScanGroupID resolves one group by id and walks it.
func (w *Walker) ScanGroupID(ctx context.Context, groupID string) error {
	g, err := w.session.Group(ctx, groupID)
	if err != nil {
		return fmt.Errorf("resolve group %s: %w", groupID, err)
	}
	return w.ScanGroup(ctx, g)
}

// ScanGroup walks every channel of the group once, then records booster
// facts.
func (w *Walker) ScanGroup(ctx context.Context, g GroupRef) error {
	w.resolved = make(map[string]Identity)

	channels, err := w.session.Channels(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("enumerate channels of %s: %w", g.ID, err)
	}
	w.logger.Info("scanning group", "group", g.ID, "name", g.Name, "channels", len(channels))
	for _, ch := range channels {
		if err := w.scanChannel(ctx, g, ch); err != nil {
			return err
		}
	}

	boosters, err := w.session.Boosters(ctx, g.ID)
	if err != nil {
		w.logger.Warn("booster listing failed", "group", g.ID, "error", err)
		return nil
	}
	for _, b := range boosters {
		if b.Bot {
			continue
		}
		err := w.recorder.Record(Fact{
			IdentityID:  b.ID,
			DisplayName: b.DisplayName,
			GroupID:     g.ID,
			GroupName:   g.Name,
			Action:      ActionBoost,
			Detail:      "is a booster",
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) scanChannel(ctx context.Context, g GroupRef, ch ChannelRef) error {
	after, _, err := w.store.GetCursor(ch.ID)
	if err != nil {
		return fmt.Errorf("read cursor for %s: %w", ch.ID, err)
	}

	for {
		// Interruption point between pages: every finished page has its
		// cursor flushed already.
		if err := ctx.Err(); err != nil {
			return err
		}
		msgs, err := w.session.MessagesAfter(ctx, ch.ID, after, w.pageSize)
		if errors.Is(err, ErrForbidden) {
			w.logger.Warn("channel inaccessible, skipping", "channel", ch.ID, "group", g.ID)
			return nil
		}
		if err != nil {
			// Transient transport failure: the stored cursor stays
			// valid and a later run resumes from it.
			return fmt.Errorf("history page for %s after %q: %w", ch.ID, after, err)
		}
		for i := range msgs {
			if err := w.processMessage(ctx, g, ch, &msgs[i]); err != nil {
				return err
			}
		}
		if len(msgs) > 0 {
			after = msgs[len(msgs)-1].ID
			if err := w.store.SetCursor(ch.ID, after); err != nil {
				return fmt.Errorf("flush cursor for %s: %w", ch.ID, err)
			}
		}
		if len(msgs) < w.pageSize {
			return nil
		}
	}
}

func (w *Walker) processMessage(ctx context.Context, g GroupRef, ch ChannelRef, m *Message) error {
	if m.Author.ID != "" && !m.Author.Bot {
		err := w.recorder.Record(Fact{
			IdentityID:  m.Author.ID,
			DisplayName: m.Author.DisplayName,
			GroupID:     g.ID,
			GroupName:   g.Name,
			Action:      ActionMessage,
			Detail:      "sent message id=" + m.ID,
			ChannelID:   ch.ID,
			MessageID:   m.ID,
		})
		if err != nil {
			return err
		}
	}

	for _, re := range m.Reactions {
		ids, err := w.session.Reactors(ctx, ch.ID, m.ID, re.Emoji)
		if err != nil {
			w.logger.Warn("reactor listing failed",
				"channel", ch.ID, "message", m.ID, "emoji", re.Emoji, "error", err)
			continue
		}
		for _, rid := range ids {
			ident, err := w.resolveIdentity(ctx, rid)
			if err != nil {
				w.logger.Warn("identity lookup failed", "identity", rid, "error", err)
				continue
			}
			if ident.Bot {
				continue
			}
			err = w.recorder.Record(Fact{
				IdentityID:  ident.ID,
				DisplayName: ident.DisplayName,
				GroupID:     g.ID,
				GroupName:   g.Name,
				Action:      ActionReaction,
				Detail:      "reacted " + re.Emoji,
				ChannelID:   ch.ID,
				MessageID:   m.ID,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Walker) resolveIdentity(ctx context.Context, id string) (Identity, error) {
	if ident, ok := w.resolved[id]; ok {
		return ident, nil
	}
	ident, err := w.session.ResolveIdentity(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	if w.resolved == nil {
		w.resolved = make(map[string]Identity)
	}
	w.resolved[id] = ident
	return ident, nil
}
