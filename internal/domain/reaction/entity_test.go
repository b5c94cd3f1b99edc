package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipSize(t *testing.T) {
	assert.Equal(t, 0.0001, PipSize("EURUSD"))
	assert.Equal(t, 0.0001, PipSize("GBPUSD"))
	assert.Equal(t, 0.01, PipSize("USDJPY"))
	assert.Equal(t, 0.01, PipSize("eurjpy"))
}

func TestReversedBy(t *testing.T) {
	up := &Reaction{
		SpikeDirection:     DirectionUp,
		SpikeHigh:          1.1050,
		SpikeLow:           1.0990,
		SpikeMagnitudePips: 50,
	}

	// Pullback of 30 pips from the high beats half the 50-pip spike
	assert.True(t, up.ReversedBy(1.1020, 0.0001))
	// 25 pips is exactly half, not enough
	assert.False(t, up.ReversedBy(1.1025, 0.0001))
	assert.False(t, up.ReversedBy(1.1048, 0.0001))

	down := &Reaction{
		SpikeDirection:     DirectionDown,
		SpikeHigh:          1.1010,
		SpikeLow:           1.0950,
		SpikeMagnitudePips: 60,
	}
	assert.True(t, down.ReversedBy(1.0985, 0.0001))
	assert.False(t, down.ReversedBy(1.0960, 0.0001))
}

func TestReversedByDegenerate(t *testing.T) {
	r := &Reaction{SpikeDirection: DirectionUp, SpikeHigh: 1.1, SpikeMagnitudePips: 0}
	assert.False(t, r.ReversedBy(1.0, 0.0001))

	r.SpikeMagnitudePips = 50
	assert.False(t, r.ReversedBy(1.0, 0))
}
