package series

import "fmt"

// DomainError reports a violated precondition, detected before any output exists.
type DomainError struct {
	Op     string // operation name, e.g. "rational_quadratic"
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: domain error: %s", e.Op, e.Reason)
}

// Domainf builds a DomainError with a formatted reason.
func Domainf(op, format string, args ...any) *DomainError {
	return &DomainError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// NumericError reports a non-finite intermediate or output value.
type NumericError struct {
	Op    string
	Index int // bar index where the value was produced, -1 if not bar-specific
	Value float64
}

func (e *NumericError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: numeric error: non-finite value %v", e.Op, e.Value)
	}
	return fmt.Sprintf("%s: numeric error: non-finite value %v at bar %d", e.Op, e.Value, e.Index)
}

// CheckFinite returns a *NumericError for the first non-finite value in s.
func CheckFinite(op string, s Series) error {
	if i := s.FirstNonFinite(); i >= 0 {
		return &NumericError{Op: op, Index: i, Value: s.values[i]}
	}
	return nil
}
