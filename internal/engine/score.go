package engine

import "math"

const (
	// BreachBonus goes to the attacker when a defense was attempted but wrong.
	BreachBonus = 150
	// TimeoutBonus goes to the attacker when no defense arrived at all. A
	// no-show is punished harder than a wrong answer.
	TimeoutBonus = 200

	basePoints   = 100
	speedPoints  = 200
	streakPoints = 50
)

// Score computes the defender's points for a resolved round. Pure function.
func Score(timeRemaining, maxTime float64, correct bool, streak int) int {
	if !correct {
		return 0
	}
	speed := 0
	if maxTime > 0 {
		speed = int(math.Round(timeRemaining / maxTime * speedPoints))
	}
	return basePoints + speed + streak*streakPoints
}
