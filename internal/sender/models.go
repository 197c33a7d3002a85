package sender

// Identity identifies a sender as supplied by the transport. It is used for
// attribution and display only; ID is the sole equality key.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle,omitempty"`
}

// Same reports whether a and b name the same sender.
func (a Identity) Same(b Identity) bool {
	return a.ID == b.ID
}

// Merge returns newer with any empty display field filled in from a.
// Transports do not always resend names, so a bare ID must not erase them.
func (a Identity) Merge(newer Identity) Identity {
	if newer.DisplayName == "" {
		newer.DisplayName = a.DisplayName
	}
	if newer.Handle == "" {
		newer.Handle = a.Handle
	}
	return newer
}

// Label renders the identity the way listings show it: "@handle (name)",
// "@handle", "name", or "Unknown" depending on which parts are set.
func (a Identity) Label() string {
	switch {
	case a.Handle != "" && a.DisplayName != "":
		return "@" + a.Handle + " (" + a.DisplayName + ")"
	case a.Handle != "":
		return "@" + a.Handle
	case a.DisplayName != "":
		return a.DisplayName
	default:
		return "Unknown"
	}
}

// Status is the compliance state of a sender.
type Status string

const (
	StatusUnsafe Status = "unsafe"
	StatusSafe   Status = "safe"
)

// Record is the tracked state for one sender.
type Record struct {
	Identity    Identity
	PendingLink string // empty when the sender has no outstanding link
	Status      Status

	seq uint64 // creation order, used for stable listings
}

// Outcome is the part of a video verdict the tracker cares about.
type Outcome interface {
	Failed() bool
}
