// Package montage is a video composition engine for [Ebitengine].
//
// A [Movie] holds an ordered list of time-bounded [Layer]s and a list of
// [Effect]s. Every tick it advances its clock, activates the layers whose
// window contains the current time, renders and composites them onto its
// canvas, then applies the movie effects.
//
// # Quick start
//
// The simplest way to watch a movie is [Run], which creates a window and
// plays it:
//
//	movie, _ := montage.NewMovie(montage.Options{"width": 640.0, "height": 360.0})
//	title, _ := montage.NewTextLayer(0, 5, montage.Options{
//		"text":    "Hello",
//		"opacity": montage.NewKeyframes(montage.Key(0, 0.0), montage.Key(1, 1.0)),
//	})
//	movie.Layers.Append(title)
//	montage.Run(movie, montage.RunConfig{Title: "Hello"})
//
// For headless rendering, give the movie a [ManualScheduler] and step it:
//
//	sched := &montage.ManualScheduler{}
//	movie.Scheduler = sched
//	movie.Record(montage.RecordOptions{Video: true, Sink: montage.NewPNGSequence("out", "")})
//	for movie.Recording() {
//		sched.Step()
//	}
//
// # Properties
//
// Every option of an entity is a property. A property holds a plain value, a
// [PropertyFunc] computed from the entity and the time, or a *[KeyframeSet]
// animated with an [Interpolator] ([Linear], [Cosine], or any [gween] easing
// through [Ease]). [Val] and the typed helpers [Float], [Bool], [ColorVal]
// and [ValAs] resolve a property at a time. Inside a tick each (entity, path)
// is resolved once; the value is cached until the next tick.
//
// Options can be written as YAML and decoded with [LoadOptions]:
//
//	opacity: !keyframes [[0, 0], [1, 1, outQuad]]
//	background: !color [0.1, 0.1, 0.2]
//
// # Events
//
// Entities publish dot-typed events on [Events]: "movie.play", "movie.seek",
// "movie.ended", "layer.start", "movie.change.layer.modify" and so on. A
// listener subscribed to "movie.change" receives every more specific change.
// The ecs subpackage forwards movie events into a [Donburi] world.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package montage
