package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orgoj/rotalog/internal/config"
	"github.com/orgoj/rotalog/internal/level"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"defaults", func(*config.Config) {}, false},
		{"nothing enabled", func(c *config.Config) {
			c.Console.Enabled = false
			c.File.Enabled = false
		}, true},
		{"flush below level only warns", func(c *config.Config) {
			c.File.Level = level.Error
			c.File.FlushLevel = level.Debug
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
