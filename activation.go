package montage

// Attachable is an entity that can be placed in a LayerList or EffectList.
// The same instance may appear in a composition more than once; its attach
// and detach hooks only run on the first attach and the last detach.
//
// *Layer implements Attachable. Effects get it by embedding *EffectBase.
type Attachable interface {
	Entity
	attach(target Entity)
	detach()
}

// TryAttach records one more occurrence of e under target, running e's attach
// hook on the 0→1 transition.
func TryAttach(e Attachable, target Entity) {
	b := e.entity()
	if b.occurrences == 0 {
		e.attach(target)
	}
	b.occurrences++
}

// TryDetach records one fewer occurrence of e, running e's detach hook on the
// 1→0 transition. It panics if e has no outstanding attach: that is a
// composition bookkeeping bug, not a runtime condition.
func TryDetach(e Attachable) {
	b := e.entity()
	if b.occurrences == 0 {
		panic("montage: detach without matching attach")
	}
	b.occurrences--
	if b.occurrences == 0 {
		e.detach()
	}
}
