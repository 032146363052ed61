package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order code prefixes
const (
	ReceivingCodePrefix = "PN"
	ShippingCodePrefix  = "PX"
)

// GenerateOrderCode builds a human readable order code such as PN20240501-3F9A1C
func GenerateOrderCode(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return prefix + at.Format("20060102") + "-" + suffix
}
