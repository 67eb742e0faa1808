package models

// Status is the health state reported by a collector for a single target.
type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Rank returns the severity order of the status: OK < WARN < FAIL.
// Unrecognized values rank as OK.
func (s Status) Rank() int {
	switch s {
	case StatusWarn:
		return 1
	case StatusFail:
		return 2
	default:
		return 0
	}
}

// WorseThan reports whether s is strictly more severe than other.
func (s Status) WorseThan(other Status) bool {
	return s.Rank() > other.Rank()
}

// IsBad reports whether the status is WARN or FAIL.
func (s Status) IsBad() bool {
	return s == StatusWarn || s == StatusFail
}
