package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

func TestProgressFeed(t *testing.T) {
	s := newStack(t, nil)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/learners/Alice/feed"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	var first progress.Snapshot
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if first.LearnerID != "Alice" || first.Score("basics") != 0 {
		t.Fatalf("initial snapshot = %+v", first)
	}

	resp, err := http.Post(ts.URL+"/api/learners/Alice/quiz-scores", "application/json",
		strings.NewReader(`{"topic_id":"basics","score":0.8}`))
	if err != nil {
		t.Fatalf("POST quiz score: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("quiz score status = %d", resp.StatusCode)
	}

	var next progress.Snapshot
	if err := wsjson.Read(ctx, conn, &next); err != nil {
		t.Fatalf("read updated snapshot: %v", err)
	}
	if got := next.Score("basics"); got != 0.8 {
		t.Errorf("updated basics score = %v, want 0.8", got)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestProgressFeed_OtherLearnerNotNotified(t *testing.T) {
	s := newStack(t, nil)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/learners/bob/feed", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	var first progress.Snapshot
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}

	resp, err := http.Post(ts.URL+"/api/learners/carol/quiz-scores", "application/json",
		strings.NewReader(`{"topic_id":"basics","score":0.5}`))
	if err != nil {
		t.Fatalf("POST quiz score: %v", err)
	}
	resp.Body.Close()

	readCtx, readCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer readCancel()
	var unexpected progress.Snapshot
	if err := wsjson.Read(readCtx, conn, &unexpected); err == nil {
		t.Errorf("bob received a snapshot for another learner's write: %+v", unexpected)
	}
}
