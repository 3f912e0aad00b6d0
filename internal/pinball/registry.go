package pinball

import (
	"errors"
	"sort"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"github.com/playmatatu/pinball/internal/physics"
)

// Role groups scene objects by what they do on the board.
type Role string

const (
	RoleBall      Role = "ball"
	RoleZone      Role = "zone"   // trigger boxes
	RoleTarget    Role = "target" // scoring capsules
	RoleFlipper   Role = "flipper"
	RolePlunger   Role = "plunger"
	RoleStructure Role = "structure"
)

var ErrUnknownEntity = errors.New("unknown scene entity")

// SceneObject binds a named scene object to the engine actor backing it.
type SceneObject struct {
	Name  string
	Role  Role
	Actor physics.ActorID
}

var sceneObject = donburi.NewComponentType[SceneObject]()

var sceneQuery = donburi.NewQuery(filter.Contains(sceneObject))

// Registry is the scene's name and actor index. Each named object is one
// entity; its entity is the stable handle while the actor behind it may be
// swapped.
type Registry struct {
	world   donburi.World
	byActor map[physics.ActorID]donburi.Entity
}

func NewRegistry(world donburi.World) *Registry {
	return &Registry{
		world:   world,
		byActor: make(map[physics.ActorID]donburi.Entity),
	}
}

// World returns the donburi world the registry lives in.
func (r *Registry) World() donburi.World {
	return r.world
}

// Register adds a scene object and returns its entity.
func (r *Registry) Register(name string, role Role, actor physics.ActorID) donburi.Entity {
	e := r.world.Create(sceneObject)
	sceneObject.SetValue(r.world.Entry(e), SceneObject{Name: name, Role: role, Actor: actor})
	r.byActor[actor] = e
	return e
}

// Object returns the scene object held by entity e.
func (r *Registry) Object(e donburi.Entity) (SceneObject, bool) {
	if !r.world.Valid(e) {
		return SceneObject{}, false
	}
	return sceneObject.GetValue(r.world.Entry(e)), true
}

// Lookup returns the first object registered under name, by actor order.
func (r *Registry) Lookup(name string) (SceneObject, donburi.Entity, bool) {
	objs := r.LookupAll(name)
	if len(objs) == 0 {
		return SceneObject{}, 0, false
	}
	return objs[0], r.byActor[objs[0].Actor], true
}

// LookupAll returns every object registered under name, by actor order.
func (r *Registry) LookupAll(name string) []SceneObject {
	var out []SceneObject
	sceneQuery.Each(r.world, func(entry *donburi.Entry) {
		obj := sceneObject.GetValue(entry)
		if obj.Name == name {
			out = append(out, obj)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out
}

// EntityOf resolves an engine actor to its scene entity. Actors that were
// swapped out by Rebind no longer resolve.
func (r *Registry) EntityOf(actor physics.ActorID) (donburi.Entity, bool) {
	e, ok := r.byActor[actor]
	return e, ok
}

// Rebind points entity e at a new engine actor. The previous actor stops
// resolving in the same call.
func (r *Registry) Rebind(e donburi.Entity, actor physics.ActorID) error {
	if !r.world.Valid(e) {
		return ErrUnknownEntity
	}
	entry := r.world.Entry(e)
	obj := sceneObject.Get(entry)
	delete(r.byActor, obj.Actor)
	obj.Actor = actor
	r.byActor[actor] = e
	return nil
}

// Count returns the number of registered objects with the given role.
func (r *Registry) Count(role Role) int {
	n := 0
	sceneQuery.Each(r.world, func(entry *donburi.Entry) {
		if sceneObject.Get(entry).Role == role {
			n++
		}
	})
	return n
}

// BallHandle is the stable reference to the ball. Other components keep the
// handle, never the actor ID.
type BallHandle struct {
	registry *Registry
	entity   donburi.Entity
}

// Actor returns the engine actor currently backing the ball.
func (h *BallHandle) Actor() (physics.ActorID, bool) {
	obj, ok := h.registry.Object(h.entity)
	if !ok {
		return 0, false
	}
	return obj.Actor, true
}

// Is reports whether actor is the current ball instance.
func (h *BallHandle) Is(actor physics.ActorID) bool {
	e, ok := h.registry.EntityOf(actor)
	return ok && e == h.entity
}

// Entity returns the ball's scene entity.
func (h *BallHandle) Entity() donburi.Entity {
	return h.entity
}
