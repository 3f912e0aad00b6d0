package main

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/playmatatu/pinball/internal/config"
	"github.com/playmatatu/pinball/internal/pinball"
	"github.com/playmatatu/pinball/internal/sim"
)

func main() {
	cfg := config.Load()
	opts, err := cfg.SessionOptions()
	if err != nil {
		log.Fatalf("Invalid pinball tuning: %v", err)
	}

	simOpts := sim.DefaultOptions()
	simOpts.Debug = cfg.Debug
	session, err := pinball.NewSession(sim.New(simOpts), opts, nil)
	if err != nil {
		log.Fatalf("Failed to build pinball session: %v", err)
	}

	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	ebiten.SetWindowTitle("Pinball")
	ebiten.SetTPS(opts.StepHz)

	if err := ebiten.RunGame(newGame(session)); err != nil {
		log.Fatal(err)
	}
}
