package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetup_Level(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	Setup("debug", true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	Setup("not-a-level", true)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	Setup("", true)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
