package pinball

import (
	"errors"
	"fmt"
	"log"

	"github.com/playmatatu/pinball/internal/physics"
)

// ErrFatal marks engine failures the session cannot recover from.
var ErrFatal = errors.New("fatal engine failure")

// Respawner swaps the ball for a fresh instance at the spawn pose.
type Respawner struct {
	engine   physics.Engine
	registry *Registry
	ball     *BallHandle
	state    *GameState
	desc     physics.ActorDesc
}

func NewRespawner(engine physics.Engine, registry *Registry, ball *BallHandle, state *GameState, desc physics.ActorDesc) *Respawner {
	return &Respawner{
		engine:   engine,
		registry: registry,
		ball:     ball,
		state:    state,
		desc:     desc,
	}
}

// Respawn removes the current ball, creates its replacement from the same
// description, rebinds the ball handle and charges one life. When it returns
// nil, exactly one actor named "Pinball" exists and the handle resolves to it.
func (r *Respawner) Respawn() error {
	if old, ok := r.ball.Actor(); ok {
		if err := r.engine.RemoveActor(old); err != nil {
			return fmt.Errorf("%w: remove ball %d: %w", ErrFatal, old, err)
		}
	}
	for _, stray := range r.engine.ActorsNamed(r.desc.Name) {
		if err := r.engine.RemoveActor(stray); err != nil {
			return fmt.Errorf("%w: remove stray ball %d: %w", ErrFatal, stray, err)
		}
	}

	id, err := r.engine.CreateActor(r.desc)
	if err != nil {
		return fmt.Errorf("%w: create ball: %w", ErrFatal, err)
	}
	if err := r.registry.Rebind(r.ball.Entity(), id); err != nil {
		return fmt.Errorf("%w: rebind ball: %w", ErrFatal, err)
	}

	if r.state.LoseLife() {
		log.Printf("[PINBALL] Out of lives, session restarted (lives=%d)", r.state.Lives)
	} else {
		log.Printf("[PINBALL] Life lost, ball respawned as actor %d (lives=%d)", id, r.state.Lives)
	}
	return nil
}
