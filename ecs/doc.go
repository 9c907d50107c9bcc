// Package ecs provides ECS adapters for montage's event system.
//
// The primary adapter is [NewDonburiStore], which bridges movie events (play,
// pause, seek, timeupdate, ended, bubbled layer and effect changes) into a
// [Donburi] world as typed events. Subscribe to [MovieEventType] in your ECS
// systems to receive them.
//
// Usage:
//
//	movie.SetEntityStore(ecs.NewDonburiStore(world))
//
// or, to also keep the movie on an entity:
//
//	e := ecs.AttachMovie(world, movie)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
