// Package matcher turns untrusted captured network records into structured
// server assignments. Records come from intercepted browser traffic and may
// be missing any field at any nesting level; nothing in this package
// panics on malformed input.
package matcher

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ysmood/gson"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// ResponseMarker is the method name identifying a "response received"
// record in the captured stream.
const ResponseMarker = "Network.responseReceived"

// Matcher extracts the assigned medical center from captured records.
type Matcher struct {
	fragment   string
	centerKeys []string
}

// New creates a Matcher. fragment filters records to exchanges whose URL
// contains it; centerKeys are the payload fields checked, in order, for
// the assigned center name.
func New(fragment string, centerKeys []string) *Matcher {
	if len(centerKeys) == 0 {
		centerKeys = []string{"center", "medical_center", "gcc_center"}
	}
	return &Matcher{fragment: fragment, centerKeys: centerKeys}
}

// Scan walks the batch and returns the assignment from the most recent
// recognized record, or nil when no record qualifies. A record that cannot
// be processed is skipped; it never aborts the batch.
func (m *Matcher) Scan(records []models.NetworkEvent) *models.Assignment {
	var last *models.Assignment
	for _, rec := range records {
		if a := m.scanOne(rec); a != nil {
			last = a
		}
	}
	return last
}

// scanOne resolves each nested field independently with a zero-value
// default on absence. Only records whose method equals ResponseMarker,
// whose request id is non-empty, and whose URL references the booking
// endpoint are candidates for payload parsing.
func (m *Matcher) scanOne(rec models.NetworkEvent) (a *models.Assignment) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("skipping malformed network record", "panic", r)
			a = nil
		}
	}()

	if len(rec.Raw) == 0 {
		return nil
	}
	j := gson.NewFrom(string(rec.Raw))

	method := strField(j, "message.method")
	requestID := strField(j, "message.params.requestId")
	respURL := strField(j, "message.params.response.url")

	if method != ResponseMarker || requestID == "" {
		return nil
	}
	if m.fragment != "" && !strings.Contains(respURL, m.fragment) {
		return nil
	}

	body := strField(j, "body")
	if body == "" {
		return nil
	}
	return m.parsePayload(body)
}

// strField resolves a dotted path to a string, defaulting to "" when the
// path is absent or holds a non-string value.
func strField(j gson.JSON, path string) string {
	if v, ok := j.Get(path).Val().(string); ok {
		return v
	}
	return ""
}

// parsePayload parses the body as JSON and looks up the center name. An
// unparsable body is not discarded: the raw string is carried as an opaque
// payload so downstream logic can still run substring checks against it.
func (m *Matcher) parsePayload(body string) *models.Assignment {
	if !json.Valid([]byte(body)) {
		return &models.Assignment{RawPayload: body}
	}
	pj := gson.NewFrom(body)
	for _, key := range m.centerKeys {
		if name := strField(pj, key); name != "" {
			return &models.Assignment{Center: name, RawPayload: body}
		}
	}
	// Structured but without a recognized center field.
	return &models.Assignment{RawPayload: body}
}
