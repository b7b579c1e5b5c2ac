package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

func TestRenderPNG(t *testing.T) {
	tl := cycle.LayoutPhases(cycle.Prediction{
		PredictedNextCycle:   cycle.NewDate(2024, 3, 1),
		FertileWindowStart:   cycle.NewDate(2024, 2, 10),
		FertileWindowEnd:     cycle.NewDate(2024, 2, 15),
		PredictedCycleLength: 28,
	})

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(640, 320).RenderPNG(&buf, tl))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 640, img.Bounds().Dx())
	require.Equal(t, 320, img.Bounds().Dy())
}

func TestRenderPNGRejectsEmptyTimeline(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, NewRenderer(0, 0).RenderPNG(&buf, cycle.Timeline{}))
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-02-16", formatDate(ts))
	require.Equal(t, "2024-02-16", formatDate(float64(ts.UnixNano())))
	require.Equal(t, "3", formatDate(3))
}
