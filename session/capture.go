package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// recorder collects Network.responseReceived exchanges for one session in
// the shape the matcher consumes. It keeps only exchanges whose URL
// references the booking endpoint fragment (empty fragment keeps all).
type recorder struct {
	fragment string

	mu     sync.Mutex
	events []models.NetworkEvent
}

func newRecorder(fragment string) *recorder {
	return &recorder{fragment: fragment}
}

// attach starts consuming CDP network events from the page until ctx is
// cancelled. It must run before navigation so no in-flight exchange is
// missed.
func (r *recorder) attach(ctx context.Context, page *rod.Page) {
	p := page.Context(ctx)
	wait := p.EachEvent(func(e *proto.NetworkResponseReceived) {
		r.record(p, e)
	})
	go wait()
}

// record captures one exchange. The body fetch is best-effort: bodies are
// unavailable for redirects and evicted entries, and a missing body is
// tolerated downstream.
func (r *recorder) record(page *rod.Page, e *proto.NetworkResponseReceived) {
	if e.Response == nil {
		return
	}
	if r.fragment != "" && !strings.Contains(e.Response.URL, r.fragment) {
		return
	}

	var body string
	if res, err := (proto.NetworkGetResponseBody{RequestID: e.RequestID}).Call(page); err == nil {
		body = res.Body
	} else {
		slog.Debug("response body unavailable", "url", e.Response.URL, "error", err)
	}

	entry := map[string]any{
		"message": map[string]any{
			"method": "Network.responseReceived",
			"params": map[string]any{
				"requestId": string(e.RequestID),
				"response": map[string]any{
					"status": e.Response.Status,
					"url":    e.Response.URL,
				},
			},
		},
		"body": body,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	r.mu.Lock()
	r.events = append(r.events, models.NetworkEvent{Raw: raw})
	r.mu.Unlock()
}

// snapshot returns a copy of the captured events in arrival order.
func (r *recorder) snapshot() []models.NetworkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NetworkEvent, len(r.events))
	copy(out, r.events)
	return out
}
