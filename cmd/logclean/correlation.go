package main

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	correlationIDValue atomic.Value
	getenv             = os.Getenv
)

func init() {
	correlationIDValue.Store("")
}

// newCorrelationID is unique per invocation; LOGCLEAN_CORRELATION_ID pins it
// so callers can stitch several commands into one trace.
func newCorrelationID(arguments []string) string {
	if pinned := strings.TrimSpace(getenv("LOGCLEAN_CORRELATION_ID")); pinned != "" {
		return pinned
	}
	normalized := make([]string, 0, len(arguments)+1)
	for _, arg := range arguments {
		normalized = append(normalized, strings.TrimSpace(arg))
	}
	normalized = append(normalized, uuid.NewString())
	sum := sha256.Sum256([]byte(strings.Join(normalized, "\x1f")))
	return hex.EncodeToString(sum[:12])
}

func setCurrentCorrelationID(correlationID string) {
	correlationIDValue.Store(strings.TrimSpace(correlationID))
}

func currentCorrelationID() string {
	value, _ := correlationIDValue.Load().(string)
	return strings.TrimSpace(value)
}
