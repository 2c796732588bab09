package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPB(t *testing.T) {
	pb := BuildPB(40.7128, -74.006, 13)

	assert.True(t, strings.HasPrefix(pb, "!4m8!1m3!1d"))
	assert.Contains(t, pb, "!2d-74.006!3d40.7128")
	assert.Contains(t, pb, "!3m2!1i415!2i608")
	assert.Contains(t, pb, "!4f13")
	assert.True(t, strings.HasSuffix(pb, pbTail))
}

func TestZoomScaleHalvesPerLevel(t *testing.T) {
	for zoom := 1; zoom < 21; zoom++ {
		require.InDelta(t, ZoomScale(zoom)/2, ZoomScale(zoom+1), 1e-9,
			"scale at zoom %d should halve at zoom %d", zoom, zoom+1)
	}
	assert.InDelta(t, 19.1092570703125, ZoomScale(14), 1e-9)
}
