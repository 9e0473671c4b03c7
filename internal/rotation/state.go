package rotation

// State is the stage a rotation pass is in for the kind being processed.
type State int

const (
	StateIdle State = iota
	StateEnforcing
	StateResolving
	StateFiltering
	StateImporting
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnforcing:
		return "enforcing"
	case StateResolving:
		return "resolving"
	case StateFiltering:
		return "filtering"
	case StateImporting:
		return "importing"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// Decision is the outcome of filtering one candidate.
type Decision int

const (
	Selected Decision = iota
	SkipInLedger
	SkipInCatalog
	SkipCheckFailed
)

func (d Decision) String() string {
	switch d {
	case Selected:
		return "selected"
	case SkipInLedger:
		return "in_ledger"
	case SkipInCatalog:
		return "in_catalog"
	case SkipCheckFailed:
		return "check_failed"
	default:
		return "unknown"
	}
}
