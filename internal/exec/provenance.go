package exec

import (
	"time"

	"github.com/tberndt/weft/internal/infer"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Provenance is the audit record of one node run. Timestamps are UTC at
// second precision so records hash stably across machines in the same
// second; fine-grained timing lives in the inference traces.
type Provenance struct {
	Node       string        `json:"node"`
	Timestamp  string        `json:"ts"`
	OutputHash string        `json:"outputs_hash,omitempty"`
	Status     string        `json:"status"`
	Inference  []infer.Trace `json:"provenance,omitempty"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
