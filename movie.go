package montage

import (
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// EntityStore is the interface for optional ECS integration. When set on a
// Movie, every movie event (including bubbled changes) is forwarded to it.
type EntityStore interface {
	EmitEvent(ev Event)
}

// FrameSink receives rendered frames while a movie records.
type FrameSink interface {
	// WriteFrame is called once per rendered tick with the movie canvas and
	// the movie time it shows. The image is reused; copy what you keep.
	WriteFrame(frame *ebiten.Image, t float64) error
	Close() error
}

// RecordOptions configures Record.
type RecordOptions struct {
	Video bool
	Audio bool

	// Duration stops the recording once the movie time passes it. Zero
	// records the whole movie.
	Duration float64

	// Sink receives video frames. Required when Video is set.
	Sink FrameSink
}

// Movie is the composition root: it owns the layers, the movie-level effects,
// the output canvas and the render loop.
//
// The loop is driven by a FrameScheduler. At most one tick is pending at any
// time; a tick that finds the movie neither playing nor refreshing does
// nothing, which is how Pause cancels the loop.
type Movie struct {
	Base

	// Layers are rendered in order, later layers over earlier ones.
	Layers LayerList
	// Effects apply to the composited canvas in order.
	Effects EffectList

	// Scheduler runs ticks. NewPlayer and Run set it; headless users assign a
	// *ManualScheduler.
	Scheduler FrameScheduler
	// Clock supplies wall-clock time for playback. Defaults to time.Now.
	Clock func() time.Time
	// OnError receives faults raised inside a tick, after playback has been
	// halted. When nil the fault is printed to stderr.
	OnError func(err error)

	canvas   *ebiten.Image
	cache    FrameCache
	storeSub *Subscription
	debug    bool
	stats    tickStats

	paused           bool
	ended            bool
	renderingFrame   bool
	recording        bool
	currentTime      float64
	lastPlayed       time.Time
	lastPlayedOffset float64

	scheduled bool
	waiters   []func(error)
	record    RecordOptions
}

// NewMovie creates a paused movie at time 0.
func NewMovie(opts Options) (*Movie, error) {
	m := &Movie{
		paused: true,
		Clock:  time.Now,
	}
	if err := m.init(m, "movie", opts); err != nil {
		return nil, err
	}
	m.Layers = newList[*Layer](m, "layer")
	m.Effects = newList[Effect](m, "effect")
	Subscribe(m, EventMovieChange, func(Event) {
		if m.Rendering() {
			return
		}
		if auto, _ := m.props["autoRefresh"].(bool); auto && m.Scheduler != nil {
			m.Refresh(nil)
		}
	})
	return m, nil
}

// --- State ---

// Paused reports whether continuous playback is stopped.
func (m *Movie) Paused() bool { return m.paused }

// Ended reports whether playback ran past the end without looping.
func (m *Movie) Ended() bool { return m.ended }

// Recording reports whether Record is in progress.
func (m *Movie) Recording() bool { return m.recording }

// Rendering reports whether the movie is playing or refreshing a frame.
func (m *Movie) Rendering() bool { return !m.paused || m.renderingFrame }

// CurrentTime returns the timeline position in seconds.
func (m *Movie) CurrentTime() float64 { return m.currentTime }

// Canvas returns the output surface. It is nil until the first frame.
func (m *Movie) Canvas() *ebiten.Image { return m.canvas }

// Cache returns the movie's frame cache.
func (m *Movie) Cache() *FrameCache { return &m.cache }

// Duration returns the end of the last layer.
func (m *Movie) Duration() float64 {
	var d float64
	for _, l := range m.Layers.Items() {
		d = max(d, l.StartTime+l.Duration)
	}
	return d
}

// SetDebugMode enables per-tick timing output on stderr.
func (m *Movie) SetDebugMode(enabled bool) { m.debug = enabled }

// SetEntityStore forwards every event published on the movie, bubbled layer
// and effect changes included, to store. Pass nil to stop.
func (m *Movie) SetEntityStore(store EntityStore) {
	if m.storeSub != nil {
		_ = Unsubscribe(m, *m.storeSub)
		m.storeSub = nil
	}
	if store == nil {
		return
	}
	sub := Subscribe(m, "movie", store.EmitEvent)
	m.storeSub = &sub
}

// --- Transport ---

// Play starts continuous playback from the current time. It returns
// ErrAlreadyPlaying if the movie is not paused. A refresh in flight is taken
// over: its pending tick runs as the first playing tick.
func (m *Movie) Play() error {
	if !m.paused {
		return ErrAlreadyPlaying
	}
	m.paused = false
	m.ended = false
	m.renderingFrame = false
	m.lastPlayed = m.Clock()
	m.lastPlayedOffset = m.currentTime
	if err := m.resumeMedia(); err != nil {
		m.fail(err)
		return err
	}
	m.publish(EventPlay, nil)
	m.requestTick()
	return nil
}

// resumeMedia seeks and plays the sources of layers a paused refresh left
// active.
func (m *Movie) resumeMedia() error {
	for _, l := range m.Layers.Items() {
		if l.active && l.Media != nil {
			if err := l.startMedia(); err != nil {
				return fmt.Errorf("layer %d: %w", l.ID(), err)
			}
		}
	}
	return nil
}

// Pause stops playback and every active layer, whether or not it is still
// inside its time window.
func (m *Movie) Pause() {
	m.paused = true
	m.deactivateLayers()
	m.publish(EventPause, nil)
}

// Stop pauses and seeks to the beginning.
func (m *Movie) Stop() {
	m.Pause()
	m.SetCurrentTime(0, true)
}

// SetCurrentTime seeks to t. While playing, the loop continues from t. When
// refresh is set and the movie is paused, one frame at t is rendered.
func (m *Movie) SetCurrentTime(t float64, refresh bool) {
	m.currentTime = t
	if !m.paused {
		m.lastPlayed = m.Clock()
		m.lastPlayedOffset = t
	}
	m.publish(EventSeek, t)
	if refresh {
		m.Refresh(nil)
	}
}

// Refresh renders one frame at the current time without starting playback.
// done, if not nil, is called once the frame is fully loaded (every media
// source ready), with the tick's error if it failed. While playing, or while
// another refresh is in flight, done waits for the next completed frame and
// no additional frame is requested.
func (m *Movie) Refresh(done func(error)) {
	if done != nil {
		m.waiters = append(m.waiters, done)
	}
	if m.Rendering() {
		return
	}
	m.renderingFrame = true
	m.requestTick()
}

// ClearCache drops every resolved value of the current frame.
func (m *Movie) ClearCache() { m.cache.Clear() }

// Record plays the movie from its current time, handing every rendered frame
// to opts.Sink, and stops at the end without looping. "movie.recordended"
// is published once the end is passed.
func (m *Movie) Record(opts RecordOptions) error {
	if !m.paused {
		return ErrAlreadyPlaying
	}
	if !opts.Video && !opts.Audio {
		return ErrNothingToRecord
	}
	if opts.Video && opts.Sink == nil {
		return fmt.Errorf("montage: record: video requested without a FrameSink")
	}
	m.record = opts
	m.recording = true
	return m.Play()
}

// --- Tick ---

func (m *Movie) requestTick() {
	if m.scheduled {
		return
	}
	if m.Scheduler == nil {
		panic("montage: movie has no FrameScheduler")
	}
	m.scheduled = true
	m.Scheduler.RequestFrame(m.tick)
}

// tick is the render loop body.
func (m *Movie) tick() {
	m.scheduled = false
	m.cache.Clear()
	if !m.Rendering() {
		m.releaseWaiters(ErrFrameCanceled)
		return
	}
	if err := m.renderTick(); err != nil {
		m.fail(err)
	}
}

func (m *Movie) renderTick() error {
	start := time.Now()
	m.stats = tickStats{}

	if !m.paused {
		m.currentTime = m.lastPlayedOffset + m.Clock().Sub(m.lastPlayed).Seconds()
	}

	end := m.Duration()
	if m.recording && m.record.Duration > 0 {
		end = m.record.Duration
	}
	if m.currentTime > end {
		return m.endReached()
	}
	if !m.paused {
		m.publish(EventTimeUpdate, m.currentTime)
	}

	if err := m.drawFrame(); err != nil {
		return err
	}
	loaded := m.mediaReady()

	if m.recording && m.record.Video {
		if err := m.record.Sink.WriteFrame(m.canvas, m.currentTime); err != nil {
			return fmt.Errorf("record: write frame: %w", err)
		}
	}

	m.stats.cacheEntries = m.cache.Len()
	if m.debug {
		m.stats.total = time.Since(start)
		m.debugLog()
		debugCheckLayerCount(m)
	}

	switch {
	case !m.paused:
		if loaded {
			m.releaseWaiters(nil)
		}
		m.requestTick()
	case !loaded:
		m.requestTick()
	default:
		m.renderingFrame = false
		m.publish(EventLoadedData, nil)
		m.releaseWaiters(nil)
	}
	return nil
}

// endReached handles a tick whose time is past the end of the timeline.
func (m *Movie) endReached() error {
	wasRecording := m.recording
	if wasRecording {
		if err := m.finishRecording(); err != nil {
			return err
		}
	}
	m.publish(EventEnded, nil)
	m.currentTime = 0
	m.publish(EventTimeUpdate, 0.0)

	repeat, err := Bool(m, "repeat", 0)
	if err != nil {
		return err
	}
	if !m.paused && repeat && !wasRecording {
		m.lastPlayed = m.Clock()
		m.lastPlayedOffset = 0
		m.requestTick()
		return nil
	}

	m.paused = true
	m.ended = true
	if !m.scheduled {
		// A movie.ended listener may have queued a refresh; keep it.
		m.renderingFrame = false
		m.deactivateLayers()
	}
	m.releaseWaiters(nil)
	return nil
}

// drawFrame fills the background, renders and composites every layer in its
// window, then applies movie effects.
func (m *Movie) drawFrame() error {
	t := m.currentTime
	if err := m.ensureCanvas(t); err != nil {
		return err
	}

	bgStart := time.Now()
	bg, ok, err := ColorVal(m, "background", t)
	if err != nil {
		return err
	}
	if ok {
		m.canvas.Fill(bg.toRGBA())
	} else {
		m.canvas.Clear()
	}
	if m.debug {
		m.stats.background = time.Since(bgStart)
	}

	layersStart := time.Now()
	for _, l := range m.Layers.Items() {
		drawn, err := m.renderLayer(l, t)
		if err != nil {
			return fmt.Errorf("layer %d: %w", l.ID(), err)
		}
		if drawn {
			m.stats.layersDrawn++
		}
	}
	if m.debug {
		m.stats.layers = time.Since(layersStart)
	}

	effectsStart := time.Now()
	n, err := applyEffects(&m.Effects, m, t)
	if err != nil {
		return err
	}
	m.stats.effectsApplied += n
	if m.debug {
		m.stats.effects = time.Since(effectsStart)
	}
	return nil
}

// renderLayer activates or deactivates l for movie time t and, when active,
// renders and composites it. Layers are activated during single-frame
// refreshes too.
func (m *Movie) renderLayer(l *Layer, t float64) (bool, error) {
	inWindow := l.StartTime <= t && t < l.StartTime+l.Duration
	if !inWindow {
		if l.active {
			l.stop()
		}
		return false, nil
	}
	rel := t - l.StartTime
	enabled, err := Bool(l, "enabled", rel)
	if err != nil {
		return false, err
	}
	if !enabled {
		if l.active {
			l.stop()
		}
		return false, nil
	}
	if !l.active {
		if err := l.start(); err != nil {
			return false, err
		}
	}
	if err := l.render(rel); err != nil {
		return false, err
	}
	if l.canvas == nil {
		return false, nil
	}
	if err := l.composite(m.canvas, rel); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Movie) ensureCanvas(t float64) error {
	w, err := Int(m, "width", t)
	if err != nil {
		return err
	}
	h, err := Int(m, "height", t)
	if err != nil {
		return err
	}
	w, h = max(w, 1), max(h, 1)
	if m.canvas != nil {
		if b := m.canvas.Bounds(); b.Dx() == w && b.Dy() == h {
			return nil
		}
		m.canvas.Deallocate()
	}
	m.canvas = ebiten.NewImage(w, h)
	return nil
}

// mediaReady reports whether every active media-backed layer has enough data
// for the current frame.
func (m *Movie) mediaReady() bool {
	ready := true
	for _, l := range m.Layers.Items() {
		if l.active && l.Media != nil && !l.Media.Ready() {
			ready = false
		}
	}
	return ready
}

func (m *Movie) deactivateLayers() {
	for _, l := range m.Layers.Items() {
		if l.active {
			l.stop()
		}
	}
}

func (m *Movie) finishRecording() error {
	m.recording = false
	var err error
	if m.record.Sink != nil {
		err = m.record.Sink.Close()
	}
	m.record = RecordOptions{}
	m.publish(EventRecordEnded, nil)
	if err != nil {
		return fmt.Errorf("record: close sink: %w", err)
	}
	return nil
}

// fail halts playback after a tick fault and reports it.
func (m *Movie) fail(err error) {
	m.paused = true
	m.renderingFrame = false
	m.deactivateLayers()
	if m.recording {
		m.recording = false
		if m.record.Sink != nil {
			_ = m.record.Sink.Close()
		}
		m.record = RecordOptions{}
	}
	m.publish(EventError, err)
	m.releaseWaiters(err)
	if m.OnError != nil {
		m.OnError(err)
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "[montage] tick halted: %v\n", err)
}

func (m *Movie) releaseWaiters(err error) {
	if len(m.waiters) == 0 {
		return
	}
	ws := m.waiters
	m.waiters = nil
	for _, done := range ws {
		done(err)
	}
}

func (m *Movie) publish(typ string, payload any) {
	Publish(m, typ, payload)
}
