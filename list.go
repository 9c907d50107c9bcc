package montage

// List is an ordered collection of layers or effects owned by one entity. Its
// methods are the only way to mutate it; each of them runs the attach/detach
// protocol and publishes "<owner>.change.<kind>.add" or ".remove".
type List[T Attachable] struct {
	owner Entity
	kind  string
	items []T
}

// LayerList is a movie's ordered list of layers. Later layers draw over
// earlier ones.
type LayerList = List[*Layer]

// EffectList is an ordered list of effects; they apply in list order.
type EffectList = List[Effect]

// ListChange is the payload of list add and remove events.
type ListChange struct {
	Index int
	Item  Entity
}

func newList[T Attachable](owner Entity, kind string) List[T] {
	return List[T]{owner: owner, kind: kind}
}

// Len returns the number of items.
func (l *List[T]) Len() int { return len(l.items) }

// At returns the item at index i. Panics if i is out of range.
func (l *List[T]) At(i int) T {
	l.checkIndex(i, len(l.items)-1)
	return l.items[i]
}

// Items returns the underlying slice. Do not modify it.
func (l *List[T]) Items() []T { return l.items }

// Index returns the position of the first occurrence of item, or -1.
func (l *List[T]) Index(item T) int {
	id := item.entity().id
	for i, it := range l.items {
		if it.entity().id == id {
			return i
		}
	}
	return -1
}

// Append adds items at the end of the list.
func (l *List[T]) Append(items ...T) {
	for _, item := range items {
		l.Insert(len(l.items), item)
	}
}

// Insert places item at index i, shifting later items. i may equal Len().
func (l *List[T]) Insert(i int, item T) {
	l.checkIndex(i, len(l.items))
	var zero T
	l.items = append(l.items, zero)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = item
	TryAttach(item, l.owner)
	l.publish("add", i, item)
}

// RemoveAt removes and returns the item at index i.
func (l *List[T]) RemoveAt(i int) T {
	l.checkIndex(i, len(l.items)-1)
	item := l.items[i]
	copy(l.items[i:], l.items[i+1:])
	var zero T
	l.items[len(l.items)-1] = zero
	l.items = l.items[:len(l.items)-1]
	TryDetach(item)
	l.publish("remove", i, item)
	return item
}

// Remove removes the first occurrence of item and reports whether it was
// found.
func (l *List[T]) Remove(item T) bool {
	i := l.Index(item)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

// Replace swaps the item at index i for item and returns the old one. The new
// item is attached before the old one is detached, so replacing an item with
// itself never runs its hooks.
func (l *List[T]) Replace(i int, item T) T {
	l.checkIndex(i, len(l.items)-1)
	old := l.items[i]
	l.items[i] = item
	TryAttach(item, l.owner)
	TryDetach(old)
	l.publish("remove", i, old)
	l.publish("add", i, item)
	return old
}

func (l *List[T]) checkIndex(i, last int) {
	if i < 0 || i > last {
		panic("montage: " + l.kind + " index out of range")
	}
}

func (l *List[T]) publish(op string, i int, item T) {
	if l.owner == nil {
		return
	}
	root := rootType(l.owner.entity().typ)
	Publish(l.owner, root+".change."+l.kind+"."+op, ListChange{Index: i, Item: item})
}
