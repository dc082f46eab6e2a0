package engine

// State is the cycle's position in its loop
type State int32

const (
	StateIdle State = iota
	StateFetchingPrices
	StateSelectingTarget
	StateEvaluating
	StateApplying
	StateReporting
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingPrices:
		return "fetching_prices"
	case StateSelectingTarget:
		return "selecting_target"
	case StateEvaluating:
		return "evaluating"
	case StateApplying:
		return "applying"
	case StateReporting:
		return "reporting"
	case StateSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}
