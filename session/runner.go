// Package session drives one isolated browser attempt: a fresh storage
// context bound to a single egress proxy, the form submission itself, and
// capture of the network exchanges the submission triggers.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// Runner is the boundary the booking engine drives. Implementations must
// guarantee that Open yields a previously-unused storage context (no
// cookies, cache, or local storage carried over) and that Close is
// idempotent.
type Runner interface {
	// Open creates an isolated session bound to the given proxy. It fails
	// with a SESSION_OPEN_FAILED error when the proxy cannot be used.
	Open(ctx context.Context, proxy *models.ProxyRecord) (*Handle, error)

	// Submit fills and submits the booking form for the candidate and
	// returns the network records captured during the exchange.
	Submit(ctx context.Context, h *Handle, task *models.Candidate) ([]models.NetworkEvent, error)

	// Complete finishes the remaining booking steps after a positive
	// match and returns the completion artifact. Only call after Submit.
	Complete(ctx context.Context, h *Handle, task *models.Candidate) (*models.Artifact, error)

	// Close releases the session's page and storage context. Safe to call
	// multiple times; never fails for an already-closed handle.
	Close(h *Handle) error
}

// Handle is one attempt's ephemeral session state. It is exclusively owned
// by a single attempt and must be closed before the attempt ends.
type Handle struct {
	proxy     *models.ProxyRecord
	startedAt time.Time

	page      *rod.Page
	browser   *rod.Browser
	contextID proto.BrowserBrowserContextID
	rec       *recorder
	cancelRec context.CancelFunc

	closed atomic.Bool
}

// Proxy returns the egress proxy this session is bound to.
func (h *Handle) Proxy() *models.ProxyRecord { return h.proxy }

// StartedAt returns when the session was opened.
func (h *Handle) StartedAt() time.Time { return h.startedAt }
