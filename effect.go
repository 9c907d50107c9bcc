package montage

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// Target is what an effect draws on: a movie or a visual layer.
type Target interface {
	Entity
	Canvas() *ebiten.Image
}

// Effect transforms a target's canvas in place. Apply is called once per
// tick while the effect is enabled, with the target's time.
//
// Custom effects embed EffectBase and call Init from their constructor:
//
//	type Vignette struct {
//		montage.EffectBase
//	}
//
//	func NewVignette(opts montage.Options) (*Vignette, error) {
//		v := &Vignette{}
//		if err := v.Init(v, "effect.vignette", opts); err != nil {
//			return nil, err
//		}
//		return v, nil
//	}
type Effect interface {
	Attachable
	Apply(target Target, t float64) error
}

// EffectBase carries the entity state and attach bookkeeping of an effect.
type EffectBase struct {
	Base

	// OnAttach runs when the effect goes live (first attach).
	OnAttach func(target Entity)
	// OnDetach runs when the last occurrence is removed.
	OnDetach func()

	target    Entity
	bubbleSub Subscription
}

// Init sets up the effect's identity and properties. self is the outer effect
// value; typ must be "effect" or start with "effect.". Declare the options of
// a custom type with RegisterDefaults first.
func (e *EffectBase) Init(self Effect, typ string, opts Options) error {
	if rootType(typ) != "effect" {
		panic(fmt.Sprintf("montage: effect type %q must start with \"effect\"", typ))
	}
	return e.init(self, typ, opts)
}

// Target returns the entity the effect is attached to, or nil.
func (e *EffectBase) Target() Entity { return e.target }

// CurrentTime returns the target's current time.
func (e *EffectBase) CurrentTime() float64 {
	if e.target == nil {
		return 0
	}
	return CurrentTime(e.target)
}

func (e *EffectBase) attach(target Entity) {
	e.target = target
	e.parent = target
	e.bubbleSub = bubble(e.self, target)
	Publish(e.self, EventEffectAttach, target)
	if e.OnAttach != nil {
		e.OnAttach(target)
	}
}

func (e *EffectBase) detach() {
	if e.OnDetach != nil {
		e.OnDetach()
	}
	_ = Unsubscribe(e.self, e.bubbleSub)
	Publish(e.self, EventEffectDetach, e.target)
	e.target = nil
	e.parent = nil
}

// applyEffects runs every enabled effect of list on target in order and
// returns how many ran.
func applyEffects(list *EffectList, target Target, t float64) (int, error) {
	n := 0
	for _, fx := range list.Items() {
		enabled, err := Bool(fx, "enabled", t)
		if err != nil {
			return n, err
		}
		if !enabled {
			continue
		}
		if err := fx.Apply(target, t); err != nil {
			return n, fmt.Errorf("effect %d (%s): %w", fx.entity().id, fx.entity().typ, err)
		}
		n++
	}
	return n, nil
}
