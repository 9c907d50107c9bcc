package montage

import "testing"

func newHookLayer(t *testing.T, attaches, detaches *int) *Layer {
	t.Helper()
	l := mustLayer(NewLayer(0, 1, nil))
	Subscribe(l, EventLayerAttach, func(Event) { *attaches++ })
	Subscribe(l, EventLayerDetach, func(Event) { *detaches++ })
	return l
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

// --- Attach protocol ---

func TestTryAttachCountsOccurrences(t *testing.T) {
	m, err := NewMovie(nil)
	if err != nil {
		t.Fatal(err)
	}
	var attaches, detaches int
	l := newHookLayer(t, &attaches, &detaches)

	TryAttach(l, m)
	TryAttach(l, m)
	if attaches != 1 || l.Occurrences() != 2 {
		t.Errorf("after two attaches: hooks %d, occurrences %d, want 1, 2", attaches, l.Occurrences())
	}
	if l.Parent() != Entity(m) {
		t.Error("Parent should be the movie")
	}

	TryDetach(l)
	if detaches != 0 {
		t.Errorf("detach hook ran with one occurrence left")
	}
	TryDetach(l)
	if detaches != 1 || l.Occurrences() != 0 {
		t.Errorf("after last detach: hooks %d, occurrences %d, want 1, 0", detaches, l.Occurrences())
	}
	if l.Parent() != nil {
		t.Error("Parent should be nil after the last detach")
	}
}

func TestTryDetachWithoutAttachPanics(t *testing.T) {
	l := mustLayer(NewLayer(0, 1, nil))
	expectPanic(t, "TryDetach", func() { TryDetach(l) })
}

func TestEffectAttachHooks(t *testing.T) {
	l := mustLayer(NewVisualLayer(0, 1, nil))
	fx := newTestEffect(t, "fx", nil, nil)
	var attachedTo Entity
	detached := 0
	fx.OnAttach = func(target Entity) { attachedTo = target }
	fx.OnDetach = func() { detached++ }

	l.Effects.Append(fx)
	if attachedTo != Entity(l) || fx.Target() != Entity(l) {
		t.Errorf("attached to %v, target %v, want the layer", attachedTo, fx.Target())
	}
	l.Effects.Remove(fx)
	if detached != 1 || fx.Target() != nil {
		t.Errorf("detached %d, target %v, want 1, nil", detached, fx.Target())
	}
}

// --- List mutation ---

func TestListAppendInsertOrder(t *testing.T) {
	m, err := NewMovie(nil)
	if err != nil {
		t.Fatal(err)
	}
	a := mustLayer(NewLayer(0, 1, nil))
	b := mustLayer(NewLayer(0, 1, nil))
	c := mustLayer(NewLayer(0, 1, nil))
	m.Layers.Append(a, c)
	m.Layers.Insert(1, b)

	if m.Layers.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Layers.Len())
	}
	for i, want := range []*Layer{a, b, c} {
		if m.Layers.At(i) != want {
			t.Errorf("At(%d) = layer %d, want %d", i, m.Layers.At(i).ID(), want.ID())
		}
	}
	if m.Layers.Index(c) != 2 {
		t.Errorf("Index(c) = %d, want 2", m.Layers.Index(c))
	}
}

func TestListEvents(t *testing.T) {
	m, err := NewMovie(nil)
	if err != nil {
		t.Fatal(err)
	}
	evs := recordEvents(t, m, "movie.change.layer")
	a := mustLayer(NewLayer(0, 1, nil))
	b := mustLayer(NewLayer(0, 1, nil))

	m.Layers.Append(a)
	m.Layers.Insert(0, b)
	m.Layers.RemoveAt(1)

	want := []struct {
		typ   string
		index int
		item  *Layer
	}{
		{"movie.change.layer.add", 0, a},
		{"movie.change.layer.add", 0, b},
		{"movie.change.layer.remove", 1, a},
	}
	if len(*evs) != len(want) {
		t.Fatalf("events = %d, want %d", len(*evs), len(want))
	}
	for i, w := range want {
		ev := (*evs)[i]
		lc, ok := ev.Payload.(ListChange)
		if ev.Type != w.typ || !ok || lc.Index != w.index || lc.Item != Entity(w.item) {
			t.Errorf("event %d = %s %+v, want %s at %d", i, ev.Type, ev.Payload, w.typ, w.index)
		}
	}
}

func TestListRemove(t *testing.T) {
	m, err := NewMovie(nil)
	if err != nil {
		t.Fatal(err)
	}
	a := mustLayer(NewLayer(0, 1, nil))
	b := mustLayer(NewLayer(0, 1, nil))
	m.Layers.Append(a)

	if m.Layers.Remove(b) {
		t.Error("Remove of an absent item should report false")
	}
	if !m.Layers.Remove(a) {
		t.Error("Remove of a present item should report true")
	}
	if m.Layers.Len() != 0 || a.Parent() != nil {
		t.Error("a should be removed and detached")
	}
}

func TestListSameItemTwice(t *testing.T) {
	m, err := NewMovie(nil)
	if err != nil {
		t.Fatal(err)
	}
	var attaches, detaches int
	l := newHookLayer(t, &attaches, &detaches)
	m.Layers.Append(l, l)
	if attaches != 1 || l.Occurrences() != 2 {
		t.Errorf("hooks %d, occurrences %d, want 1, 2", attaches, l.Occurrences())
	}
	m.Layers.RemoveAt(0)
	if detaches != 0 || l.Parent() == nil {
		t.Error("layer should stay attached while one occurrence remains")
	}
	m.Layers.RemoveAt(0)
	if detaches != 1 {
		t.Errorf("detach hooks = %d, want 1", detaches)
	}
}

func TestListReplace(t *testing.T) {
	m, err := NewMovie(nil)
	if err != nil {
		t.Fatal(err)
	}
	var aAttach, aDetach, bAttach, bDetach int
	a := newHookLayer(t, &aAttach, &aDetach)
	b := newHookLayer(t, &bAttach, &bDetach)
	m.Layers.Append(a)

	old := m.Layers.Replace(0, b)
	if old != a || m.Layers.At(0) != b {
		t.Error("Replace should swap a for b")
	}
	if aDetach != 1 || bAttach != 1 {
		t.Errorf("a detaches %d, b attaches %d, want 1, 1", aDetach, bAttach)
	}

	m.Layers.Replace(0, b)
	if bAttach != 1 || bDetach != 0 || b.Occurrences() != 1 {
		t.Errorf("self-replace ran hooks: attaches %d, detaches %d, occurrences %d",
			bAttach, bDetach, b.Occurrences())
	}
}

func TestListIndexOutOfRangePanics(t *testing.T) {
	m, err := NewMovie(nil)
	if err != nil {
		t.Fatal(err)
	}
	l := mustLayer(NewLayer(0, 1, nil))
	expectPanic(t, "At", func() { m.Layers.At(0) })
	expectPanic(t, "RemoveAt", func() { m.Layers.RemoveAt(0) })
	expectPanic(t, "Insert", func() { m.Layers.Insert(1, l) })
	expectPanic(t, "Replace", func() { m.Layers.Replace(-1, l) })
}

func TestRemovingActiveLayerStopsIt(t *testing.T) {
	m, sched, _ := newTestMovie(t, nil)
	stops := 0
	l := mustLayer(NewLayer(0, 10, nil))
	l.OnStop = func(*Layer) { stops++ }
	m.Layers.Append(l)
	sched.Step()
	if !l.Active() {
		t.Fatal("layer should be active after the refresh frame")
	}
	m.Layers.Remove(l)
	if l.Active() || stops != 1 {
		t.Errorf("active %v, stops %d, want false, 1", l.Active(), stops)
	}
}
