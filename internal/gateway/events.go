package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/tracker"
)

// EventServer receives live events pushed by the bridge and hands them
// to the live handler. One POST per event, fire-and-forget from the
// bridge's point of view.
type EventServer struct {
	addr   string
	token  string
	live   *tracker.LiveHandler
	logger *slog.Logger
}

// NewEventServer builds the receiver. A nil logger falls back to the
// process default.
func NewEventServer(addr, token string, live *tracker.LiveHandler, logger *slog.Logger) *EventServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventServer{addr: addr, token: token, live: live, logger: logger}
}

type wireEvent struct {
	Type      string       `json:"type"`
	User      wireIdentity `json:"user"`
	Guild     wireGroup    `json:"guild"`
	ChannelID string       `json:"channel_id,omitempty"`
	MessageID string       `json:"message_id,omitempty"`
	Emoji     string       `json:"emoji,omitempty"`
	Status    string       `json:"status,omitempty"`
}

func (e wireEvent) event() tracker.Event {
	return tracker.Event{
		Kind:      tracker.EventKind(e.Type),
		Identity:  e.User.identity(),
		Group:     tracker.GroupRef{ID: e.Guild.ID, Name: e.Guild.Name},
		ChannelID: e.ChannelID,
		MessageID: e.MessageID,
		Emoji:     e.Emoji,
		Status:    e.Status,
	}
}

func (s *EventServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvent)
	return mux
}

func (s *EventServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var evt wireEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	s.live.HandleEvent(evt.event())
	w.WriteHeader(http.StatusNoContent)
}

// Run serves the event listener until the context is cancelled.
func (s *EventServer) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.routes()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("live event listener started", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
