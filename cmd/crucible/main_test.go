package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityGateError(t *testing.T) {
	err := &QualityGateError{
		Message: "ideas score 7.20 below threshold 9.00",
	}

	assert.Equal(t, "ideas score 7.20 below threshold 9.00", err.Error())
}

func TestErrorTypeDetection(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantIsGate bool
	}{
		{
			name:       "QualityGateError",
			err:        &QualityGateError{Message: "below threshold"},
			wantIsGate: true,
		},
		{
			name:       "regular error",
			err:        errors.New("config error"),
			wantIsGate: false,
		},
		{
			name:       "wrapped QualityGateError",
			err:        fmt.Errorf("session abc: %w", &QualityGateError{Message: "below threshold"}),
			wantIsGate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gateErr *QualityGateError
			assert.Equal(t, tt.wantIsGate, errors.As(tt.err, &gateErr))
		})
	}
}
