package tracker

import (
	"log/slog"
)

// EventKind identifies a live transport event.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventReaction EventKind = "reaction_add"
	EventJoin     EventKind = "member_join"
	EventPresence EventKind = "presence_update"
	EventBoost    EventKind = "boost"
)

// Event is the normalized live payload delivered by the transport.
// Channel, message, emoji and status fields apply per kind.
type Event struct {
	Kind      EventKind
	Identity  Identity
	Group     GroupRef
	ChannelID string
	MessageID string
	Emoji     string
	Status    string
}

// Normalize maps a live event onto the common fact shape. It reports
// false for events carrying no recordable discovery: bot accounts,
// events without a group, and unknown kinds.
func Normalize(evt Event) (Fact, bool) {
	if evt.Identity.ID == "" || evt.Identity.Bot || evt.Group.ID == "" {
		return Fact{}, false
	}
	f := Fact{
		IdentityID:  evt.Identity.ID,
		DisplayName: evt.Identity.DisplayName,
		GroupID:     evt.Group.ID,
		GroupName:   evt.Group.Name,
		ChannelID:   evt.ChannelID,
		MessageID:   evt.MessageID,
	}
	switch evt.Kind {
	case EventMessage:
		f.Action = ActionMessage
		f.Detail = "sent message id=" + evt.MessageID
	case EventReaction:
		f.Action = ActionReaction
		f.Detail = "reacted " + evt.Emoji + " (live)"
	case EventJoin:
		f.Action = ActionJoin
		f.Detail = "joined (live)"
	case EventPresence:
		f.Action = ActionPresence
		f.Detail = "presence " + evt.Status
	case EventBoost:
		f.Action = ActionBoost
		f.Detail = "is a booster"
	default:
		return Fact{}, false
	}
	return f, true
}

// LiveHandler applies live events through the recorder. Each event is
// handled to completion; the transport may deliver different event kinds
// concurrently, which the store's atomic write path tolerates. Live
// events never move scan cursors: message-id ordering belongs to the
// transport, and only the walker may advance a channel's resume point.
type LiveHandler struct {
	recorder *Recorder
	logger   *slog.Logger
}

// NewLiveHandler wires the live path. A nil logger falls back to the
// process default.
func NewLiveHandler(rec *Recorder, logger *slog.Logger) *LiveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveHandler{recorder: rec, logger: logger}
}

// HandleEvent records one live event, fire-and-forget. Failures are
// logged and never terminate the live loop.
func (h *LiveHandler) HandleEvent(evt Event) {
	fact, ok := Normalize(evt)
	if !ok {
		return
	}
	if err := h.recorder.Record(fact); err != nil {
		h.logger.Error("live event not recorded",
			"kind", string(evt.Kind), "identity", evt.Identity.ID, "error", err)
	}
}
