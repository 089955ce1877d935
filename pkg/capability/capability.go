// Package capability gates user-facing features by connectivity state
package capability

// ID identifies a user-facing capability
type ID string

// Declared capabilities.
const (
	// VoiceSession is a live, bidirectional voice conversation
	VoiceSession ID = "voice-session"
	// SendMessage dispatches a chat message to the server
	SendMessage ID = "send-message"
	// ViewHistory browses previously synced conversation history
	ViewHistory ID = "view-history"
	// TranscriptExport exports a session transcript
	TranscriptExport ID = "transcript-export"
	// Search searches across conversations
	Search ID = "search"
	// ProfileSettings edits user profile and preferences
	ProfileSettings ID = "profile-settings"
)

// Status describes how usable a capability is under the current connectivity.
type Status int

const (
	// StatusAvailable means the capability works normally
	StatusAvailable Status = iota
	// StatusLimited means the capability works with reduced functionality
	StatusLimited
	// StatusQueued means invocations are deferred and replayed on reconnect
	StatusQueued
	// StatusUnavailable means the capability cannot be used at all
	StatusUnavailable
)

// String returns the string representation of a Status
func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusLimited:
		return "limited"
	case StatusQueued:
		return "queued"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Entry is a static catalog row describing one capability and its offline
// behavior. The offline mapping is a design decision, not derived from issue
// data.
type Entry struct {
	ID          ID
	Title       string
	Description string

	// OfflineStatus is the status reported while the client is offline.
	// Online, every capability is StatusAvailable.
	OfflineStatus Status

	// Limitation describes the reduced behavior for limited/queued/unavailable
	Limitation string

	// AlternativeAction suggests what the user can do instead
	AlternativeAction string
}

// Catalog is the full capability table, one row per declared capability.
//
//	capability          offline status
//	voice-session       unavailable
//	send-message        queued
//	view-history        available
//	transcript-export   queued
//	search              limited (synced results only)
//	profile-settings    limited (changes apply after reconnect)
var Catalog = []Entry{
	{
		ID:                VoiceSession,
		Title:             "Voice session",
		Description:       "Live voice conversation",
		OfflineStatus:     StatusUnavailable,
		Limitation:        "Live voice requires an active connection",
		AlternativeAction: "Use text chat; messages send when you reconnect",
	},
	{
		ID:            SendMessage,
		Title:         "Send message",
		Description:   "Send a chat message",
		OfflineStatus: StatusQueued,
		Limitation:    "Messages are queued and sent when you reconnect",
	},
	{
		ID:            ViewHistory,
		Title:         "View history",
		Description:   "Browse synced conversation history",
		OfflineStatus: StatusAvailable,
	},
	{
		ID:            TranscriptExport,
		Title:         "Export transcript",
		Description:   "Export a session transcript",
		OfflineStatus: StatusQueued,
		Limitation:    "Exports run once the connection is restored",
	},
	{
		ID:                Search,
		Title:             "Search",
		Description:       "Search across conversations",
		OfflineStatus:     StatusLimited,
		Limitation:        "Only previously synced conversations are searchable",
		AlternativeAction: "Browse history for recent conversations",
	},
	{
		ID:            ProfileSettings,
		Title:         "Profile & settings",
		Description:   "Edit profile and preferences",
		OfflineStatus: StatusLimited,
		Limitation:    "Changes are stored locally and applied after reconnect",
	},
}

// CapabilityStatus is the computed availability of one capability.
type CapabilityStatus struct {
	ID                ID
	Status            Status
	Title             string
	Description       string
	Limitation        string
	AlternativeAction string
}

// Evaluate computes the status of every declared capability for the given
// connectivity state. Pure function of its inputs; results are never cached
// or persisted.
func Evaluate(online bool) []CapabilityStatus {
	statuses := make([]CapabilityStatus, 0, len(Catalog))
	for _, entry := range Catalog {
		status := StatusAvailable
		limitation := ""
		alternative := ""
		if !online {
			status = entry.OfflineStatus
			if status != StatusAvailable {
				limitation = entry.Limitation
				alternative = entry.AlternativeAction
			}
		}
		statuses = append(statuses, CapabilityStatus{
			ID:                entry.ID,
			Status:            status,
			Title:             entry.Title,
			Description:       entry.Description,
			Limitation:        limitation,
			AlternativeAction: alternative,
		})
	}
	return statuses
}

// Signal reports the current online state. connectivity.Monitor satisfies it.
type Signal interface {
	Online() bool
}

// Gate evaluates capability availability against a live connectivity signal.
type Gate struct {
	signal Signal
}

// NewGate creates a gate bound to a connectivity signal.
func NewGate(signal Signal) *Gate {
	return &Gate{signal: signal}
}

// Current returns the capability statuses for the signal's current state.
func (g *Gate) Current() []CapabilityStatus {
	return Evaluate(g.signal.Online())
}

// Lookup returns the computed status for a single capability.
func (g *Gate) Lookup(id ID) (CapabilityStatus, bool) {
	for _, cs := range g.Current() {
		if cs.ID == id {
			return cs, true
		}
	}
	return CapabilityStatus{}, false
}
