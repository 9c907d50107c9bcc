package montage

import (
	"fmt"
	"os"
	"time"
)

// tickStats holds per-tick timing and counts.
// Timings are only measured when Movie.debug is true.
type tickStats struct {
	background     time.Duration
	layers         time.Duration
	effects        time.Duration
	total          time.Duration
	layersDrawn    int
	effectsApplied int
	cacheEntries   int
}

// Stats returns the counts of the last rendered tick: layers composited,
// effects applied and cached property values.
func (m *Movie) Stats() (layersDrawn, effectsApplied, cacheEntries int) {
	return m.stats.layersDrawn, m.stats.effectsApplied, m.stats.cacheEntries
}

// debugLog prints timing and count stats to stderr.
func (m *Movie) debugLog() {
	if !m.debug {
		return
	}
	s := m.stats
	_, _ = fmt.Fprintf(os.Stderr,
		"[montage] t=%.3f | background: %v | layers: %v | effects: %v | total: %v\n",
		m.currentTime, s.background, s.layers, s.effects, s.total)
	_, _ = fmt.Fprintf(os.Stderr,
		"[montage] layers drawn: %d | effects applied: %d | cached values: %d\n",
		s.layersDrawn, s.effectsApplied, s.cacheEntries)
}

// debugMaxLayers is the layer count above which a debug warning is printed.
const debugMaxLayers = 256

// debugCheckLayerCount warns on stderr if a movie holds an unusually large
// number of layers.
func debugCheckLayerCount(m *Movie) {
	if n := m.Layers.Len(); n > debugMaxLayers {
		_, _ = fmt.Fprintf(os.Stderr, "[montage] warning: movie %d has %d layers (threshold %d)\n",
			m.ID(), n, debugMaxLayers)
	}
}
