package database

// State is the connection readiness of a Database.
type State string

// Connection states.
//
// Valid transitions:
//
//	DISCONNECTED --Connect--> CONNECTING --success--> CONNECTED
//	CONNECTING --failure--> DISCONNECTED
//	CONNECTED --Disconnect--> DISCONNECTED
const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
)

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

