package models

import (
	"encoding/json"
	"strings"
)

// NetworkEvent is one intercepted network exchange produced by the session
// runner, in the shape of a CDP performance-log entry:
//
//	{"message": {"method": "Network.responseReceived",
//	             "params": {"requestId": "...",
//	                        "response": {"status": 200, "url": "..."}}},
//	 "body": "..."}
//
// The entry is untrusted: no key is guaranteed present at any nesting level.
// Consumers must traverse it defensively.
type NetworkEvent struct {
	Raw json.RawMessage `json:"raw"`
}

// Assignment is the server-asserted medical center extracted from a
// recognized NetworkEvent. Center is empty when the payload could not be
// parsed as structured data; RawPayload is always preserved so downstream
// logic can still run substring checks against the opaque value.
type Assignment struct {
	Center     string `json:"center"`
	RawPayload string `json:"raw_payload"`
}

// Matches reports whether the assignment names the target center. The
// comparison is exact and case-sensitive. For opaque payloads the best
// available judgment is a substring check against the raw value.
func (a *Assignment) Matches(target string) bool {
	if target == "" {
		return false
	}
	if a.Center != "" {
		return a.Center == target
	}
	return strings.Contains(a.RawPayload, target)
}
