package trust

import (
	"fmt"
)

// Action identifies a reputation-affecting transaction outcome.
type Action string

const (
	ActionOnTimeReturn    Action = "ON_TIME_RETURN"
	ActionLateReturnMinor Action = "LATE_RETURN_MINOR"
	ActionLateReturnMajor Action = "LATE_RETURN_MAJOR"
	ActionDispute         Action = "DISPUTE"
	ActionCompleted       Action = "COMPLETED"
)

// Score bounds. Every account starts at 50.
const (
	MinScore = 0
	MaxScore = 100
)

// deltas is the fixed adjustment table. There is no history beyond the
// current value.
var deltas = map[Action]int{
	ActionOnTimeReturn:    +5,
	ActionLateReturnMinor: -3,
	ActionLateReturnMajor: -7,
	ActionDispute:         -10,
	ActionCompleted:       +2,
}

// Delta returns the score adjustment for an action.
func Delta(action Action) (int, error) {
	d, ok := deltas[action]
	if !ok {
		return 0, fmt.Errorf("unknown trust action: %s", action)
	}
	return d, nil
}

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Level buckets a score for display.
type Level string

const (
	LevelExcellent Level = "EXCELLENT"
	LevelGood      Level = "GOOD"
	LevelAverage   Level = "AVERAGE"
	LevelLow       Level = "LOW"
	LevelPoor      Level = "POOR"
)

// LevelFor maps a score to its level.
func LevelFor(score int) Level {
	switch {
	case score >= 80:
		return LevelExcellent
	case score >= 60:
		return LevelGood
	case score >= 40:
		return LevelAverage
	case score >= 20:
		return LevelLow
	default:
		return LevelPoor
	}
}
