package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineBecomesReadyAtIdealFill(t *testing.T) {
	buf := NewRingBuffer(10)
	p := NewPipeline(buf, 0.8, 0.2)

	p.Feed(make([]float32, 7))
	p.Tick()
	require.False(t, p.Ready())

	p.Feed(make([]float32, 2))
	p.Tick()
	require.True(t, p.Ready())
}

func TestPipelineDropsReadyBelowCritical(t *testing.T) {
	buf := NewRingBuffer(10)
	p := NewPipeline(buf, 0.8, 0.2)
	var stopped bool
	p.StopActiveInput = func() { stopped = true }

	p.Feed(make([]float32, 9))
	p.Tick()
	require.True(t, p.Ready())

	buf.Advance(8)
	p.Tick()
	require.False(t, p.Ready())
	require.True(t, stopped)
}
