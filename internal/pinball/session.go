package pinball

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yohamta/donburi"

	"github.com/playmatatu/pinball/internal/physics"
)

var (
	ErrSessionFailed = errors.New("session failed")
	ErrInvalidInput  = errors.New("invalid input")
)

// Options tunes a session.
type Options struct {
	StepHz        int
	StartingLives int
	Points        Points
	PlungerForce  float64
	FlipperStrike float64
	FlipperRest   float64
	PlungerPolicy PlungerPolicy
	Debug         bool
}

// DefaultOptions returns the stock board settings.
func DefaultOptions() Options {
	return Options{
		StepHz:        60,
		StartingLives: DefaultLives,
		Points:        DefaultPoints,
		PlungerForce:  40,
		FlipperStrike: -10,
		FlipperRest:   10,
		PlungerPolicy: PlungerContinuous,
	}
}

// StepInterval is the fixed tick duration.
func (o Options) StepInterval() time.Duration {
	return time.Second / time.Duration(o.StepHz)
}

// Control names an input device.
type Control string

const (
	ControlPlunger      Control = "plunger"
	ControlFlipperLeft  Control = "flipper_left"
	ControlFlipperRight Control = "flipper_right"
)

// Action is an input edge.
type Action string

const (
	ActionPress   Action = "press"
	ActionRelease Action = "release"
)

// InputEvent is one press or release of a control.
type InputEvent struct {
	Control Control `json:"control"`
	Action  Action  `json:"action"`
}

func (ev InputEvent) Validate() error {
	switch ev.Control {
	case ControlPlunger, ControlFlipperLeft, ControlFlipperRight:
	default:
		return fmt.Errorf("%w: unknown control %q", ErrInvalidInput, ev.Control)
	}
	switch ev.Action {
	case ActionPress, ActionRelease:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, ev.Action)
	}
	return nil
}

// BallSnapshot is the ball's engine state.
type BallSnapshot struct {
	Actor    physics.ActorID `json:"actor"`
	Position physics.Vec3    `json:"position"`
	Velocity physics.Vec3    `json:"velocity"`
}

// Snapshot is a consistent view of a session between ticks.
type Snapshot struct {
	Tick           uint64        `json:"tick"`
	Score          int           `json:"score"`
	Lives          int           `json:"lives"`
	Resets         int           `json:"resets"`
	Status         Status        `json:"status"`
	Ball           *BallSnapshot `json:"ball,omitempty"`
	PlungerEngaged bool          `json:"plunger_engaged"`
	FlipperLeft    float64       `json:"flipper_left"`
	FlipperRight   float64       `json:"flipper_right"`
	PlungerPolicy  PlungerPolicy `json:"plunger_policy"`
	Error          string        `json:"error,omitempty"`
}

// Session owns one running game: the engine, the scene, the game state and
// the controls. All methods are safe for concurrent use; input and queries
// are serialised with Step so nothing observes a half-done respawn.
type Session struct {
	mu sync.Mutex

	opts     Options
	dt       float64
	engine   physics.Engine
	world    donburi.World
	registry *Registry
	board    *Board
	state    *GameState

	sink      *TriggerSink
	machine   *Machine
	respawner *Respawner
	plunger   *Plunger
	flippers  *Flippers
	notifier  Notifier

	tick    uint64
	status  Status
	failure error
}

// NewSession builds the board in engine and wires the sink, reducer and
// controls. A nil notifier logs events.
func NewSession(engine physics.Engine, opts Options, notifier Notifier) (*Session, error) {
	if opts.StepHz <= 0 {
		return nil, fmt.Errorf("step rate must be positive, got %d", opts.StepHz)
	}
	if opts.StartingLives < 0 || opts.StartingLives > DefaultLives {
		return nil, fmt.Errorf("starting lives must be within [0, %d], got %d", DefaultLives, opts.StartingLives)
	}
	if _, err := ParsePlungerPolicy(string(opts.PlungerPolicy)); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = LogNotifier{Verbose: opts.Debug}
	}

	world := donburi.NewWorld()
	registry := NewRegistry(world)
	board, err := BuildBoard(engine, registry)
	if err != nil {
		return nil, fmt.Errorf("build board: %w", err)
	}

	s := &Session{
		opts:     opts,
		dt:       1 / float64(opts.StepHz),
		engine:   engine,
		world:    world,
		registry: registry,
		board:    board,
		state:    NewGameState(opts.StartingLives),
		notifier: notifier,
		status:   StatusActive,
	}
	s.sink = NewTriggerSink(world, board.Ball, opts.Debug)
	s.respawner = NewRespawner(engine, registry, board.Ball, s.state, board.BallDesc)
	s.machine = NewMachine(world, s.state, s.respawner, opts.PlungerPolicy, opts.Points)
	s.plunger = NewPlunger(engine, board.PlungerPlate, opts.PlungerForce)
	s.flippers = NewFlippers(engine, board.FlipperJoints[SideLeft], board.FlipperJoints[SideRight], opts.FlipperStrike, opts.FlipperRest)

	for _, side := range []Side{SideLeft, SideRight} {
		if err := s.flippers.Release(side); err != nil {
			return nil, fmt.Errorf("init flippers: %w", err)
		}
	}
	engine.SetEventCallback(s.sink)

	log.Printf("[PINBALL] Session ready: %d Hz, lives=%d, plunger policy=%s", opts.StepHz, opts.StartingLives, opts.PlungerPolicy)
	return s, nil
}

// Step runs one tick: plunger force, engine step (the sink runs inside it),
// then the reducer. Notifications go out after the lock is released.
func (s *Session) Step() error {
	s.mu.Lock()
	if s.status == StatusFailed {
		s.mu.Unlock()
		return ErrSessionFailed
	}

	res, failType, err := s.stepLocked()
	now := time.Now()
	events := eventsFor(res, s.tick, s.state, now)
	if err != nil {
		s.failLocked(err)
		events = append(events, GameEvent{
			Type:      failType,
			Tick:      s.tick,
			Score:     s.state.Score,
			Lives:     s.state.Lives,
			Message:   err.Error(),
			Timestamp: now,
		})
	}
	s.mu.Unlock()

	for _, ev := range events {
		s.notifier.Notify(ev)
	}
	return err
}

func (s *Session) stepLocked() (TickResult, EventType, error) {
	if err := s.plunger.Sustain(); err != nil {
		return TickResult{}, EventSessionFailed, fmt.Errorf("%w: plunger force: %w", ErrFatal, err)
	}
	if err := s.engine.Step(s.dt); err != nil {
		return TickResult{}, EventSessionFailed, fmt.Errorf("%w: engine step: %w", ErrFatal, err)
	}
	s.tick++

	res, err := s.machine.Tick()
	return res, EventRespawnFailed, err
}

func (s *Session) failLocked(err error) {
	s.status = StatusFailed
	s.failure = err
	log.Printf("[PINBALL] Session failed at tick %d: %v", s.tick, err)
}

// HandleInput applies one input edge to the actuators.
func (s *Session) HandleInput(ev InputEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFailed {
		return ErrSessionFailed
	}

	press := ev.Action == ActionPress
	switch ev.Control {
	case ControlPlunger:
		if press {
			s.plunger.Engage()
		} else {
			s.plunger.Disengage()
		}
		return nil
	case ControlFlipperLeft:
		return s.flip(SideLeft, press)
	default:
		return s.flip(SideRight, press)
	}
}

func (s *Session) flip(side Side, press bool) error {
	if press {
		return s.flippers.Activate(side)
	}
	return s.flippers.Release(side)
}

func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Score
}

func (s *Session) Lives() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Lives
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the error that failed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Options returns the options the session was built with.
func (s *Session) Options() Options {
	return s.opts
}

// Snapshot returns the session's state as of the last completed tick.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tick:           s.tick,
		Score:          s.state.Score,
		Lives:          s.state.Lives,
		Resets:         s.state.Resets,
		Status:         s.status,
		PlungerEngaged: s.plunger.Engaged(),
		FlipperLeft:    s.flippers.Velocity(SideLeft),
		FlipperRight:   s.flippers.Velocity(SideRight),
		PlungerPolicy:  s.machine.Policy(),
	}
	if s.failure != nil {
		snap.Error = s.failure.Error()
	}
	if id, ok := s.board.Ball.Actor(); ok {
		if info, ok := s.engine.Actor(id); ok {
			snap.Ball = &BallSnapshot{Actor: id, Position: info.Pose.P, Velocity: info.Velocity}
		}
	}
	return snap
}
