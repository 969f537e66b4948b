package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFlag(t *testing.T) {
	assert.Equal(t, FlagGreen, ParseFlag("Green"))
	assert.Equal(t, FlagYellow, ParseFlag("caution"))
	assert.Equal(t, FlagCheckered, ParseFlag("chequered"))
	assert.Equal(t, FlagUnknown, ParseFlag("bogus"))
}

func TestFlagString(t *testing.T) {
	assert.Equal(t, "Green", FlagGreen.String())
	assert.Equal(t, "Unknown", FlagUnknown.String())
}
