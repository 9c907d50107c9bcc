// Package ecs provides ECS adapters for montage.
package ecs

import (
	"github.com/phanxgames/montage"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// MovieEventType is the Donburi event type for montage movie events.
// Subscribe to this in your ECS systems to receive playback, seek, end and
// change notifications.
var MovieEventType = events.NewEventType[montage.Event]()

// MovieData is the component value holding a movie in a Donburi world.
type MovieData struct {
	Movie *montage.Movie
}

// Movie is the component type of entities created by AttachMovie.
var Movie = donburi.NewComponentType[MovieData]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates an EntityStore backed by a Donburi world.
// Movie events are published to MovieEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiStore(world donburi.World) montage.EntityStore {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitEvent(event montage.Event) {
	MovieEventType.Publish(s.world, event)
}

// AttachMovie creates an entity carrying m in the Movie component and routes
// m's events into world.
func AttachMovie(world donburi.World, m *montage.Movie) donburi.Entity {
	e := world.Create(Movie)
	Movie.SetValue(world.Entry(e), MovieData{Movie: m})
	m.SetEntityStore(NewDonburiStore(world))
	return e
}
