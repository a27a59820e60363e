package classification

import "fmt"

// Direction is the market direction a classifier predicts.
type Direction struct {
	sign int8
}

var (
	Long    = Direction{sign: 1}
	Short   = Direction{sign: -1}
	Neutral = Direction{}
)

// Int returns +1 for Long, -1 for Short and 0 for Neutral.
func (d Direction) Int() int { return int(d.sign) }

// DirectionFromInt maps the sign of n to a Direction.
func DirectionFromInt(n int) Direction {
	switch {
	case n > 0:
		return Long
	case n < 0:
		return Short
	}
	return Neutral
}

func (d Direction) String() string {
	switch d.sign {
	case 1:
		return "long"
	case -1:
		return "short"
	case 0:
		return "neutral"
	}
	return fmt.Sprintf("direction(%d)", d.sign)
}
