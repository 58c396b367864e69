package session

// Phase is the coordinator's discrete round state (§3).
type Phase string

const (
	AwaitingConnections   Phase = "AwaitingConnections"
	AwaitingKeys          Phase = "AwaitingKeys"
	AwaitingPerturbations Phase = "AwaitingPerturbations"
	AwaitingValues        Phase = "AwaitingValues"
	Terminal              Phase = "Terminal"
)
