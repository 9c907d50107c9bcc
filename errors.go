package montage

import "errors"

// Usage faults. All of them signal a programmer error in how the composition
// is built or driven; none are retried internally. Callers match them with
// errors.Is, since most are wrapped with context.
var (
	// ErrTypeMismatch is returned when two values of different kinds (number
	// and string, number and object, ...) are interpolated.
	ErrTypeMismatch = errors.New("montage: interpolation type mismatch")

	// ErrPrototypeMismatch is returned when two objects of different Go types
	// are interpolated.
	ErrPrototypeMismatch = errors.New("montage: interpolation prototype mismatch")

	// ErrNoKeyframes is returned when evaluating an empty KeyframeSet.
	ErrNoKeyframes = errors.New("montage: keyframe set is empty")

	// ErrInvalidTime is returned when a KeyframeSet is evaluated at NaN.
	ErrInvalidTime = errors.New("montage: invalid time")

	// ErrBeforeFirstKeyframe is returned when a KeyframeSet is evaluated
	// before its first control point.
	ErrBeforeFirstKeyframe = errors.New("montage: time is before the first keyframe")

	// ErrUnknownProperty is returned by Val for a path whose first segment is
	// not a property of the entity.
	ErrUnknownProperty = errors.New("montage: unknown property")

	// ErrUnknownOption is returned by constructors given an option key that the
	// entity type does not declare.
	ErrUnknownOption = errors.New("montage: unknown option")

	// ErrListenerNotFound is returned by Unsubscribe for a subscription that
	// is not registered on the target.
	ErrListenerNotFound = errors.New("montage: listener not registered")

	// ErrAlreadyPlaying is returned by Play and Record when the movie is not
	// paused.
	ErrAlreadyPlaying = errors.New("montage: already playing")

	// ErrNothingToRecord is returned by Record when both video and audio
	// output are disabled.
	ErrNothingToRecord = errors.New("montage: both video and audio recording are disabled")

	// ErrFrameCanceled is passed to Refresh callbacks whose frame was never
	// rendered because playback was paused before the next tick.
	ErrFrameCanceled = errors.New("montage: frame canceled before rendering")

	// ErrPropertyType is returned by the typed accessors (Float, Bool, ...)
	// when a resolved value has the wrong Go type.
	ErrPropertyType = errors.New("montage: property has the wrong type")
)
