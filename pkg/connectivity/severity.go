// Package connectivity tracks connection issues and the online/offline signal
package connectivity

// Severity ranks connection issues. Higher values are more severe.
type Severity int

const (
	// SeverityLow indicates degraded but usable service
	SeverityLow Severity = iota
	// SeverityMedium indicates noticeable disruption
	SeverityMedium
	// SeverityHigh indicates a feature-blocking problem
	SeverityHigh
	// SeverityCritical indicates the client is effectively offline
	SeverityCritical
)

// String returns the string representation of a Severity
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}
