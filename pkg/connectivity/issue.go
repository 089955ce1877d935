package connectivity

import (
	"time"

	"github.com/jzx17/resilience/pkg/capability"
)

// Issue is an active connection issue. Values are immutable once constructed;
// re-adding a code replaces the whole value rather than mutating it.
type Issue struct {
	Code                       Code
	Severity                   Severity
	Message                    string
	Description                string
	EstimatedResolutionMinutes int
	Retryable                  bool
	AffectedCapabilities       []capability.ID
	UserActions                []string
	CreatedAt                  time.Time

	// TechnicalDetails carries raw diagnostic text. Available for support
	// flows but never the primary user-facing message.
	TechnicalDetails string
}

// Affects reports whether the issue affects the given capability.
func (i Issue) Affects(id capability.ID) bool {
	for _, c := range i.AffectedCapabilities {
		if c == id {
			return true
		}
	}
	return false
}
