package terminal

// Operation is an atomic device action the terminal can perform.
type Operation string

const (
	OpNone             Operation = "none"
	OpReset            Operation = "reset"
	OpDownloadConfig   Operation = "download_config"
	OpSale             Operation = "sale"
	OpRecurringSale    Operation = "recurring_sale"
	OpReplaceCard      Operation = "replace_card"
	OpGetClientVersion Operation = "get_client_version"
	OpReadPrepaidCard  Operation = "read_prepaid_card"
)

// State is the manager's execution state: the operation currently awaiting
// a terminal response and the one queued to follow it. The zero pair
// (OpNone, OpNone) is idle. Values are replaced wholesale on every
// transition, never mutated in place.
type State struct {
	Current Operation `json:"current"`
	Next    Operation `json:"next"`
}

// Idle reports whether no operation is in flight.
func (s State) Idle() bool {
	return s.Current == OpNone
}

func idleState() State {
	return State{Current: OpNone, Next: OpNone}
}

// Status is the externally visible snapshot of the manager.
type Status struct {
	State     State  `json:"state"`
	HasAmount bool   `json:"has_amount"`
	Amount    string `json:"amount,omitempty"`
}
