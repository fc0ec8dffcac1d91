package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderLabel(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"google", "Google"},
		{"dev", "development account"},
		{"github", "Github"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.NotPanics(t, func() {
			assert.Equal(t, tt.want, providerLabel(tt.name))
		})
	}
}
