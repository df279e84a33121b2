// Package tracker contains the discovery pipeline: fact normalization,
// the idempotent recording path, the cursor-resumable history walker and
// the live event handler.
package tracker

// Action tags the signal a fact was derived from. The store and the
// discovery log only ever see this closed set, never raw event shapes.
type Action string

const (
	ActionMessage  Action = "message"
	ActionReaction Action = "reaction"
	ActionJoin     Action = "join"
	ActionPresence Action = "presence"
	ActionBoost    Action = "boost"
)

// Fact is the normalized discovery shape shared by the history walker
// and the live handler. Detail is the human-readable description carried
// into the discovery log line.
type Fact struct {
	IdentityID  string
	DisplayName string
	GroupID     string
	GroupName   string
	Action      Action
	Detail      string
	ChannelID   string
	MessageID   string
}
