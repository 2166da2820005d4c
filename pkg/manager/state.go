package manager

// State is the lifecycle state of one managed connection.
//
// Transitions: disconnected or failed entries move to connecting when an
// attempt starts, then to connected on success or failed on error. Any of
// connected, connecting, or failed moves to closing on disconnect, and a
// closing entry only ever leaves the table.
type State string

const (
	// StateDisconnected is reported for servers with no registry entry.
	StateDisconnected State = "disconnected"
	// StateConnecting marks an attempt in flight.
	StateConnecting State = "connecting"
	// StateConnected marks a live session.
	StateConnected State = "connected"
	// StateFailed marks a failed attempt or a remotely terminated session.
	// The entry stays registered so the failure count keeps accumulating.
	StateFailed State = "failed"
	// StateClosing marks an entry mid-disconnect.
	StateClosing State = "closing"
)

func (s State) String() string {
	return string(s)
}

// Stats counts registered connections by state.
type Stats struct {
	Total        int `json:"total"`
	Connected    int `json:"connected"`
	Connecting   int `json:"connecting"`
	Failed       int `json:"failed"`
	Disconnected int `json:"disconnected"`
}
