package connectivity

import (
	"fmt"

	"github.com/jzx17/resilience/pkg/capability"
)

// Code identifies a class of connectivity or service failure.
type Code string

// Registered issue codes.
const (
	// CodeNetworkOffline means the device has no network at all
	CodeNetworkOffline Code = "network_offline"
	// CodeServerUnreachable means the service endpoint cannot be reached
	CodeServerUnreachable Code = "server_unreachable"
	// CodeRequestTimeout means requests complete too slowly or not at all
	CodeRequestTimeout Code = "request_timeout"
	// CodeRateLimited means the server is throttling this client
	CodeRateLimited Code = "rate_limited"
	// CodeQuotaExceeded means the account's usage quota is spent
	CodeQuotaExceeded Code = "quota_exceeded"
	// CodeServiceDegraded means the service reports partial degradation
	CodeServiceDegraded Code = "service_degraded"
	// CodeStreamDisconnected means the realtime voice/event stream dropped
	CodeStreamDisconnected Code = "stream_disconnected"
	// CodeAuthExpired means the session credentials are no longer valid
	CodeAuthExpired Code = "auth_expired"
)

// CatalogEntry is the static definition of one issue code.
type CatalogEntry struct {
	Code                       Code
	Severity                   Severity
	Message                    string
	Description                string
	EstimatedResolutionMinutes int
	Retryable                  bool
	AffectedCapabilities       []capability.ID
	UserActions                []string
}

var allCapabilities = []capability.ID{
	capability.VoiceSession,
	capability.SendMessage,
	capability.ViewHistory,
	capability.TranscriptExport,
	capability.Search,
	capability.ProfileSettings,
}

// catalog maps every registered code to its static definition.
var catalog = map[Code]CatalogEntry{
	CodeNetworkOffline: {
		Code:                       CodeNetworkOffline,
		Severity:                   SeverityCritical,
		Message:                    "You're offline",
		Description:                "No network connection was detected. Actions are saved and sent once you're back online.",
		EstimatedResolutionMinutes: 1,
		Retryable:                  true,
		AffectedCapabilities:       allCapabilities,
		UserActions:                []string{"Check your network connection", "Retry once you're back online"},
	},
	CodeServerUnreachable: {
		Code:                       CodeServerUnreachable,
		Severity:                   SeverityHigh,
		Message:                    "Can't reach the server",
		Description:                "The service isn't responding. This is usually temporary.",
		EstimatedResolutionMinutes: 5,
		Retryable:                  true,
		AffectedCapabilities: []capability.ID{
			capability.VoiceSession, capability.SendMessage,
			capability.TranscriptExport, capability.Search,
		},
		UserActions: []string{"Wait a moment and retry"},
	},
	CodeRequestTimeout: {
		Code:                       CodeRequestTimeout,
		Severity:                   SeverityMedium,
		Message:                    "The connection is slow",
		Description:                "Requests are timing out. Responses may be delayed.",
		EstimatedResolutionMinutes: 2,
		Retryable:                  true,
		AffectedCapabilities: []capability.ID{
			capability.VoiceSession, capability.SendMessage, capability.Search,
		},
		UserActions: []string{"Retry", "Switch to a more stable network"},
	},
	CodeRateLimited: {
		Code:                       CodeRateLimited,
		Severity:                   SeverityMedium,
		Message:                    "Slow down a little",
		Description:                "Too many requests in a short time. Things will recover shortly.",
		EstimatedResolutionMinutes: 1,
		Retryable:                  true,
		AffectedCapabilities: []capability.ID{
			capability.SendMessage, capability.Search,
		},
		UserActions: []string{"Wait a minute before retrying"},
	},
	CodeQuotaExceeded: {
		Code:                       CodeQuotaExceeded,
		Severity:                   SeverityHigh,
		Message:                    "Usage limit reached",
		Description:                "Your plan's usage quota is spent for this period.",
		EstimatedResolutionMinutes: 60,
		Retryable:                  false,
		AffectedCapabilities: []capability.ID{
			capability.VoiceSession, capability.SendMessage,
		},
		UserActions: []string{"Upgrade your plan", "Wait for the quota to reset"},
	},
	CodeServiceDegraded: {
		Code:                       CodeServiceDegraded,
		Severity:                   SeverityLow,
		Message:                    "Some features are degraded",
		Description:                "Parts of the service are running slowly. Core features still work.",
		EstimatedResolutionMinutes: 15,
		Retryable:                  true,
		AffectedCapabilities: []capability.ID{
			capability.VoiceSession, capability.Search,
		},
	},
	CodeStreamDisconnected: {
		Code:                       CodeStreamDisconnected,
		Severity:                   SeverityHigh,
		Message:                    "Voice connection lost",
		Description:                "The realtime stream dropped. Reconnecting automatically.",
		EstimatedResolutionMinutes: 1,
		Retryable:                  true,
		AffectedCapabilities: []capability.ID{
			capability.VoiceSession,
		},
		UserActions: []string{"Wait for the automatic reconnect", "Restart the voice session"},
	},
	CodeAuthExpired: {
		Code:                       CodeAuthExpired,
		Severity:                   SeverityHigh,
		Message:                    "Session expired",
		Description:                "Your session is no longer valid. Sign in again to continue.",
		EstimatedResolutionMinutes: 5,
		Retryable:                  false,
		AffectedCapabilities:       allCapabilities,
		UserActions:                []string{"Sign in again"},
	},
}

// LookupCode returns the catalog entry for a code.
func LookupCode(code Code) (CatalogEntry, error) {
	entry, ok := catalog[code]
	if !ok {
		return CatalogEntry{}, fmt.Errorf("connectivity: unknown issue code %q", code)
	}
	return entry, nil
}

// Codes returns all registered issue codes.
func Codes() []Code {
	codes := make([]Code, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	return codes
}
