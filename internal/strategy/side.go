package strategy

import "fmt"

// Side is the closed two-variant direction type. Its numeric value doubles
// as the sign multiplier for all side-dependent arithmetic: a LONG stop is
// entry - Sign()*dist, a SHORT stop entry + the same expression.
type Side int8

const (
	Long  Side = 1
	Short Side = -1
)

func (s Side) Sign() float64 { return float64(s) }

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// ParseSide accepts the wire spellings used in snapshots and config.
func ParseSide(raw string) (Side, error) {
	switch raw {
	case "LONG", "long":
		return Long, nil
	case "SHORT", "short":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown side %q", raw)
	}
}
