package main

import (
	"fmt"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/playmatatu/pinball/internal/pinball"
)

const (
	screenWidth  = 320
	screenHeight = 240

	scoreTweenSecs = 0.6
)

// binding maps keys to one control. Any bound key holds the control down.
type binding struct {
	control pinball.Control
	keys    []ebiten.Key
	held    bool
}

var bindings = []*binding{
	{control: pinball.ControlPlunger, keys: []ebiten.Key{ebiten.KeySpace}},
	{control: pinball.ControlFlipperLeft, keys: []ebiten.Key{ebiten.KeyZ, ebiten.KeyArrowLeft}},
	{control: pinball.ControlFlipperRight, keys: []ebiten.Key{ebiten.KeyM, ebiten.KeyArrowRight}},
}

// edge returns the action to send this frame, if any.
func (b *binding) edge() (pinball.Action, bool) {
	justPressed, justReleased, down := false, false, false
	for _, k := range b.keys {
		justPressed = justPressed || inpututil.IsKeyJustPressed(k)
		justReleased = justReleased || inpututil.IsKeyJustReleased(k)
		down = down || ebiten.IsKeyPressed(k)
	}
	switch {
	case justPressed && !b.held:
		b.held = true
		return pinball.ActionPress, true
	case justReleased && !down && b.held:
		b.held = false
		return pinball.ActionRelease, true
	}
	return "", false
}

type game struct {
	session *pinball.Session
	snap    pinball.Snapshot

	shownScore float32
	scoreTween *gween.Tween
}

func newGame(s *pinball.Session) *game {
	return &game{session: s, snap: s.Snapshot()}
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if g.snap.Status == pinball.StatusActive {
		for _, b := range bindings {
			if action, ok := b.edge(); ok {
				if err := g.session.HandleInput(pinball.InputEvent{Control: b.control, Action: action}); err != nil {
					log.Printf("[PINBALL] Input %s/%s: %v", b.control, action, err)
				}
			}
		}
		if err := g.session.Step(); err != nil {
			log.Printf("[PINBALL] Stopped stepping: %v", err)
		}
	}

	prev := g.snap.Score
	g.snap = g.session.Snapshot()
	if g.snap.Score != prev {
		g.scoreTween = gween.New(g.shownScore, float32(g.snap.Score), scoreTweenSecs, ease.OutCubic)
	}
	if g.scoreTween != nil {
		v, done := g.scoreTween.Update(1 / float32(ebiten.TPS()))
		g.shownScore = v
		if done {
			g.scoreTween = nil
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 46, G: 9, B: 39, A: 255})

	hud := fmt.Sprintf("SCORE %d\nLIVES %d\nSTATUS %s\nTICK %d\n",
		int(g.shownScore+0.5), g.snap.Lives, g.snap.Status, g.snap.Tick)
	if g.snap.Ball != nil {
		p := g.snap.Ball.Position
		hud += fmt.Sprintf("BALL %.1f %.1f %.1f\n", p.X, p.Y, p.Z)
	}
	if g.snap.PlungerEngaged {
		hud += "PLUNGER\n"
	}
	if g.snap.Error != "" {
		hud += "\n" + g.snap.Error + "\n"
	}
	hud += "\nSPACE plunger  Z/LEFT  M/RIGHT  ESC quit"
	ebitenutil.DebugPrint(screen, hud)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
