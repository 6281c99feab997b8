package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{10, GradeAPlus},
		{9.5, GradeAPlus},
		{9.49, GradeA},
		{9.0, GradeA},
		{8.5, GradeAMinus},
		{8.0, GradeBPlus},
		{7.99, GradeB},
		{7.0, GradeB},
		{6.5, GradeBMinus},
		{6.0, GradeCPlus},
		{5.0, GradeC},
		{4.0, GradeCMinus},
		{3.0, GradeD},
		{2.99, GradeF},
		{0, GradeF},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score), "score %v", tt.score)
	}
}

func TestGrade_AtLeast(t *testing.T) {
	assert.True(t, GradeA.AtLeast(GradeBPlus))
	assert.True(t, GradeB.AtLeast(GradeB))
	assert.False(t, GradeC.AtLeast(GradeBMinus))
}

func TestParseGrade(t *testing.T) {
	g, err := ParseGrade(" b+ ")
	require.NoError(t, err)
	assert.Equal(t, GradeBPlus, g)

	_, err = ParseGrade("E")
	require.Error(t, err)
}
