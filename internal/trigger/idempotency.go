package trigger

import (
	"fmt"
	"strings"
	"time"
)

// MinBucket is the smallest idempotency time bucket.
const MinBucket = time.Second

// IdempotencyKey builds "<identity>:<direction>:<bucket>" where bucket is
// floor(nowMs / max(1000, cooldownMs)). Identity is lowercased with whitespace
// runs collapsed to a dash.
func IdempotencyKey(identity, direction string, now time.Time, cooldown time.Duration) string {
	bucketMs := max(cooldown, MinBucket).Milliseconds()
	bucket := now.UnixMilli() / bucketMs
	if now.UnixMilli() < 0 && now.UnixMilli()%bucketMs != 0 {
		bucket--
	}
	return fmt.Sprintf("%s:%s:%d", normalizeIdentity(identity), strings.ToLower(direction), bucket)
}

func normalizeIdentity(identity string) string {
	return strings.Join(strings.Fields(strings.ToLower(identity)), "-")
}
