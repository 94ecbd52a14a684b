package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresStrongAuth(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		threshold int64
		expected  bool
	}{
		{"below threshold", 499999, DefaultStrongAuthThreshold, false},
		{"at threshold", 500000, DefaultStrongAuthThreshold, true},
		{"above threshold", 750000, DefaultStrongAuthThreshold, true},
		{"custom threshold", 1000, 1000, true},
		{"zero amount", 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RequiresStrongAuth(tt.amount, tt.threshold))
		})
	}
}

func TestBiometricPolicy(t *testing.T) {
	t.Run("defaults when threshold not positive", func(t *testing.T) {
		p := NewBiometricPolicy(0)
		assert.Equal(t, DefaultStrongAuthThreshold, p.Threshold())
		assert.True(t, p.RequiresStrongAuth(500000))
		assert.False(t, p.RequiresStrongAuth(499999))
	})

	t.Run("zero value uses default", func(t *testing.T) {
		var p BiometricPolicy
		assert.Equal(t, DefaultStrongAuthThreshold, p.Threshold())
	})

	t.Run("configured threshold", func(t *testing.T) {
		p := NewBiometricPolicy(20000)
		assert.True(t, p.RequiresStrongAuth(20000))
		assert.False(t, p.RequiresStrongAuth(19999))
	})
}
