package scoring

import (
	"fmt"
	"strings"
)

// Grade is a letter grade derived from a final score.
type Grade string

const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeD      Grade = "D"
	GradeF      Grade = "F"
)

// gradeLadder is ordered from the highest threshold down.
var gradeLadder = []struct {
	grade Grade
	min   float64
}{
	{GradeAPlus, 9.5},
	{GradeA, 9.0},
	{GradeAMinus, 8.5},
	{GradeBPlus, 8.0},
	{GradeB, 7.0},
	{GradeBMinus, 6.5},
	{GradeCPlus, 6.0},
	{GradeC, 5.0},
	{GradeCMinus, 4.0},
	{GradeD, 3.0},
	{GradeF, 0.0},
}

func (g Grade) String() string {
	return string(g)
}

// MinScore returns the lowest final score that earns g.
func (g Grade) MinScore() float64 {
	for _, step := range gradeLadder {
		if step.grade == g {
			return step.min
		}
	}
	return 0
}

// AtLeast returns true if g is at or above target.
func (g Grade) AtLeast(target Grade) bool {
	return g.MinScore() >= target.MinScore()
}

// GradeFor maps a final score in [0, 10] onto the grade ladder.
func GradeFor(score float64) Grade {
	for _, step := range gradeLadder {
		if score >= step.min {
			return step.grade
		}
	}
	return GradeF
}

// ParseGrade converts a flag value such as "b+" into a Grade.
func ParseGrade(s string) (Grade, error) {
	want := Grade(strings.ToUpper(strings.TrimSpace(s)))
	for _, step := range gradeLadder {
		if step.grade == want {
			return step.grade, nil
		}
	}
	return GradeF, fmt.Errorf("invalid grade %q: must be one of A+, A, A-, B+, B, B-, C+, C, C-, D, F", s)
}
