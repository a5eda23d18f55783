package alerting

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewAlertID generates a unique alert id of the form alert_<unixms>_<random>.
func NewAlertID(nowMs int64) string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// timestamp-only id rather than panicking in the alert path.
		return fmt.Sprintf("alert_%d_0", nowMs)
	}
	return fmt.Sprintf("alert_%d_%s", nowMs, hex.EncodeToString(buf[:]))
}
