package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

const feedWriteTimeout = 5 * time.Second

// feed fans progress-change notifications out to websocket subscribers,
// keyed by normalized learner id.
type feed struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func newFeed() *feed {
	return &feed{subs: make(map[string]map[chan struct{}]struct{})}
}

// subscribe registers interest in a learner. The returned channel receives
// at most one pending signal; bursts of writes coalesce into one refresh.
func (f *feed) subscribe(learnerID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if f.subs[learnerID] == nil {
		f.subs[learnerID] = make(map[chan struct{}]struct{})
	}
	f.subs[learnerID][ch] = struct{}{}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[learnerID], ch)
		if len(f.subs[learnerID]) == 0 {
			delete(f.subs, learnerID)
		}
	}
}

func (f *feed) publish(learnerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[learnerID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// notify signals subscribers of the learner named in the request path.
func (s *Server) notify(r *http.Request) {
	if id, err := progress.NormalizeLearnerID(r.PathValue("learnerID")); err == nil {
		s.feed.publish(id)
	}
}

// handleFeed streams the learner's progress snapshot over a websocket: once
// on connect and again after every recorded change.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	learnerID, err := progress.NormalizeLearnerID(r.PathValue("learnerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The connection outlives the server's per-request deadlines.
	rc := http.NewResponseController(w)
	rc.SetReadDeadline(time.Time{})
	rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("progress feed upgrade failed", "learner_id", learnerID, "error", err)
		return
	}
	defer conn.CloseNow()

	updates, unsubscribe := s.feed.subscribe(learnerID)
	defer unsubscribe()

	ctx := conn.CloseRead(r.Context())
	for {
		snap, err := s.tracker.ProgressOf(ctx, learnerID)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("progress feed read failed", "learner_id", learnerID, "error", err)
				conn.Close(websocket.StatusInternalError, "progress unavailable")
			}
			return
		}

		writeCtx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
		err = wsjson.Write(writeCtx, conn, snap)
		cancel()
		if err != nil {
			slog.Debug("progress feed closed", "learner_id", learnerID, "error", err)
			return
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-updates:
		}
	}
}
