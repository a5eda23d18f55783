// Package idhash derives deterministic identifiers from upstream ids so
// replayed inputs map to the same records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeAnalyticsEventID computes a deterministic analytics event id using SHA256.
// Formula: SHA256(provider_event_id|action)
// Returns hex-encoded hash (64 characters).
//
// The provider retries webhook deliveries, so the same provider event can
// reach a handler more than once; a deterministic id lets the event store
// reject the duplicate insert instead of double-counting.
func ComputeAnalyticsEventID(providerEventID, action string) string {
	data := fmt.Sprintf("%s|%s", providerEventID, action)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
