package service

// State is a phase of the sampling loop.
type State int32

const (
	StateIdle State = iota
	StateOpening
	StateReading
	StateSkipping
	StateProcessing
	StateDraining
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateReading:
		return "reading"
	case StateSkipping:
		return "skipping"
	case StateProcessing:
		return "processing"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the loop has stopped for good.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
