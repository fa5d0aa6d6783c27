package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusForWarnings(t *testing.T) {
	tests := []struct {
		name     string
		warnings int
		want     SessionStatus
	}{
		{"zero warnings", 0, SessionStatusActive},
		{"negative treated as clean", -1, SessionStatusActive},
		{"single warning", 1, SessionStatusWarning},
		{"two warnings flags", 2, SessionStatusFlagged},
		{"many warnings stay flagged", 17, SessionStatusFlagged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForWarnings(tt.warnings))
		})
	}
}
