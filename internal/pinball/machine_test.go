package pinball

import (
	"errors"
	"testing"

	"github.com/yohamta/donburi"
)

type countingRespawner struct {
	state *GameState
	calls int
	err   error
}

func (r *countingRespawner) Respawn() error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.state.LoseLife()
	return nil
}

func newTestMachine(policy PlungerPolicy) (*Machine, donburi.World, *countingRespawner) {
	world := donburi.NewWorld()
	state := NewGameState(DefaultLives)
	rs := &countingRespawner{state: state}
	return NewMachine(world, state, rs, policy, DefaultPoints), world, rs
}

func publish(world donburi.World, zone Zone, kind EventKind) {
	ZoneEventType.Publish(world, ZoneEvent{Zone: zone, Kind: kind})
}

func TestMachineAppliesFlagsInOrder(t *testing.T) {
	m, world, rs := newTestMachine(PlungerContinuous)

	publish(world, ZoneScoreC, Entered)
	publish(world, ZoneScoreA, Entered)
	publish(world, ZoneOutOfBounds, Entered)
	publish(world, ZonePlungerPulled, Entered)

	res, err := m.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rs.calls != 1 || !res.LifeLost {
		t.Fatalf("respawn calls = %d, life lost = %v", rs.calls, res.LifeLost)
	}

	// Out of bounds clears the plunger flag raised in the same batch.
	want := []Zone{ZoneScoreA, ZoneScoreC}
	if len(res.Awards) != len(want) {
		t.Fatalf("awards = %+v, want zones %v", res.Awards, want)
	}
	for i, z := range want {
		if res.Awards[i].Zone != z {
			t.Errorf("award %d zone = %s, want %s", i, res.Awards[i].Zone, z)
		}
	}
	if m.state.Score != 1100 || m.state.Lives != 2 {
		t.Errorf("score=%d lives=%d, want 1100 and 2", m.state.Score, m.state.Lives)
	}
	if m.state.Pending.Any() {
		t.Errorf("flags left raised: %+v", m.state.Pending)
	}
}

func TestMachineIgnoresLeaveOutsidePlungerLane(t *testing.T) {
	m, world, rs := newTestMachine(PlungerDwell)

	publish(world, ZoneScoreA, Left)
	publish(world, ZoneOutOfBounds, Left)

	res, err := m.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(res.Awards) != 0 || rs.calls != 0 {
		t.Errorf("leave events had effects: %+v, respawns=%d", res, rs.calls)
	}
}

func TestMachineDwellPassThroughAwardsOnce(t *testing.T) {
	m, world, _ := newTestMachine(PlungerDwell)

	publish(world, ZonePlungerPulled, Entered)
	publish(world, ZonePlungerPulled, Left)

	for i := 0; i < 3; i++ {
		if _, err := m.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	if m.state.Score != DefaultPoints.Plunger {
		t.Errorf("score = %d, want %d", m.state.Score, DefaultPoints.Plunger)
	}
}

func TestMachineDwellReentryInOneBatch(t *testing.T) {
	tests := []struct {
		name  string
		batch []EventKind
		want  int // score after the batch tick and one more
	}{
		{name: "leave then enter", batch: []EventKind{Left, Entered}, want: 3},
		{name: "enter then leave", batch: []EventKind{Entered, Left}, want: 2},
		{name: "leave enter leave", batch: []EventKind{Left, Entered, Left}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, world, _ := newTestMachine(PlungerDwell)
			publish(world, ZonePlungerPulled, Entered)
			if _, err := m.Tick(); err != nil {
				t.Fatal(err)
			}

			for _, kind := range tt.batch {
				publish(world, ZonePlungerPulled, kind)
			}
			for i := 0; i < 2; i++ {
				if _, err := m.Tick(); err != nil {
					t.Fatal(err)
				}
			}
			if m.state.Score != tt.want {
				t.Errorf("score = %d, want %d", m.state.Score, tt.want)
			}
		})
	}
}

func TestMachineMarksRepeatedLaneAwards(t *testing.T) {
	m, world, _ := newTestMachine(PlungerContinuous)

	var repeats []bool
	tick := func() {
		t.Helper()
		res, err := m.Tick()
		if err != nil {
			t.Fatal(err)
		}
		for _, a := range res.Awards {
			if a.Zone == ZonePlungerPulled {
				repeats = append(repeats, a.Repeat)
			}
		}
	}

	publish(world, ZonePlungerPulled, Entered)
	tick()
	tick()
	publish(world, ZonePlungerPulled, Entered)
	tick()
	publish(world, ZoneOutOfBounds, Entered)
	tick()
	publish(world, ZonePlungerPulled, Entered)
	tick()

	want := []bool{false, true, true, false}
	if len(repeats) != len(want) {
		t.Fatalf("lane awards = %v, want %v", repeats, want)
	}
	for i := range want {
		if repeats[i] != want[i] {
			t.Errorf("lane award %d repeat = %v, want %v", i, repeats[i], want[i])
		}
	}
}

func TestMachineKeepsGoingWhenRespawnFails(t *testing.T) {
	m, world, rs := newTestMachine(PlungerContinuous)
	rs.err = ErrFatal

	publish(world, ZoneOutOfBounds, Entered)
	publish(world, ZoneScoreB, Entered)

	res, err := m.Tick()
	if !errors.Is(err, ErrFatal) {
		t.Fatalf("expected ErrFatal, got %v", err)
	}
	if res.LifeLost {
		t.Error("failed respawn reported a lost life")
	}
	if m.state.Score != 250 {
		t.Errorf("score = %d, want 250", m.state.Score)
	}
}

func TestParsePlungerPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    PlungerPolicy
		wantErr bool
	}{
		{in: "continuous", want: PlungerContinuous},
		{in: "dwell", want: PlungerDwell},
		{in: "oneshot", want: PlungerOneShot},
		{in: "", wantErr: true},
		{in: "always", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePlungerPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePlungerPolicy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePlungerPolicy(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoseLifeWrapsAround(t *testing.T) {
	g := NewGameState(3)
	g.AddPoints(500)
	g.AddPoints(-20)

	for _, want := range []int{2, 1, 0} {
		if g.LoseLife() {
			t.Fatalf("reset reported with %d lives left", g.Lives)
		}
		if g.Lives != want || g.Score != 500 {
			t.Fatalf("lives=%d score=%d, want %d and 500", g.Lives, g.Score, want)
		}
	}
	if !g.LoseLife() {
		t.Fatal("expected a reset")
	}
	if g.Lives != 3 || g.Score != 0 || g.Resets != 1 {
		t.Errorf("after reset: %+v", g)
	}
}

func TestRegistryRebind(t *testing.T) {
	r := NewRegistry(donburi.NewWorld())
	ball := r.Register(BallName, RoleBall, 1)
	r.Register("Score2", RoleTarget, 2)
	r.Register("Score2", RoleTarget, 3)

	if got := r.Count(RoleTarget); got != 2 {
		t.Errorf("targets = %d, want 2", got)
	}
	if objs := r.LookupAll("Score2"); len(objs) != 2 || objs[0].Actor != 2 || objs[1].Actor != 3 {
		t.Errorf("LookupAll(Score2) = %+v", objs)
	}
	if _, _, ok := r.Lookup("Bumper"); ok {
		t.Error("unknown name resolved")
	}

	handle := &BallHandle{registry: r, entity: ball}
	if !handle.Is(1) {
		t.Fatal("handle should resolve actor 1")
	}
	if err := r.Rebind(ball, 7); err != nil {
		t.Fatalf("Rebind: %v", err)
	}
	if handle.Is(1) {
		t.Error("old actor still resolves")
	}
	if id, ok := handle.Actor(); !ok || id != 7 {
		t.Errorf("handle actor = %d, %v", id, ok)
	}
	if obj, _, ok := r.Lookup(BallName); !ok || obj.Actor != 7 {
		t.Errorf("Lookup(%s) = %+v", BallName, obj)
	}
}
