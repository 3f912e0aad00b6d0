package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/playmatatu/pinball/internal/pinball"
)

// Tuning holds the gameplay numbers an operator may change without a
// rebuild. The board layout itself is fixed.
type Tuning struct {
	StepHz        int            `yaml:"stepHz"`
	StartingLives int            `yaml:"startingLives"`
	Points        pinball.Points `yaml:"points"`
	PlungerForce  float64        `yaml:"plungerForce"`
	PlungerPolicy string         `yaml:"plungerPolicy"`
	Flipper       FlipperTuning  `yaml:"flipper"`
}

// FlipperTuning is the angular drive velocity for each flipper state.
type FlipperTuning struct {
	Strike float64 `yaml:"strike"`
	Rest   float64 `yaml:"rest"`
}

// DefaultTuning mirrors pinball.DefaultOptions.
func DefaultTuning() Tuning {
	o := pinball.DefaultOptions()
	return Tuning{
		StepHz:        o.StepHz,
		StartingLives: o.StartingLives,
		Points:        o.Points,
		PlungerForce:  o.PlungerForce,
		PlungerPolicy: string(o.PlungerPolicy),
		Flipper:       FlipperTuning{Strike: o.FlipperStrike, Rest: o.FlipperRest},
	}
}

// LoadTuning reads a YAML tuning file over the defaults. Keys missing from
// the file keep their default value. An empty path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("invalid tuning in %s: %w", path, err)
	}

	log.Printf("[CONFIG] Loaded tuning from %s", path)
	return t, nil
}

// Validate checks every field and reports all problems at once.
func (t Tuning) Validate() error {
	var errs []error
	if t.StepHz <= 0 {
		errs = append(errs, fmt.Errorf("stepHz must be positive, got %d", t.StepHz))
	}
	if t.StartingLives < 0 || t.StartingLives > pinball.DefaultLives {
		errs = append(errs, fmt.Errorf("startingLives must be within [0, %d], got %d", pinball.DefaultLives, t.StartingLives))
	}
	points := map[string]int{
		"scoreA":  t.Points.ScoreA,
		"scoreB":  t.Points.ScoreB,
		"scoreC":  t.Points.ScoreC,
		"plunger": t.Points.Plunger,
	}
	for _, name := range []string{"scoreA", "scoreB", "scoreC", "plunger"} {
		if points[name] < 0 {
			errs = append(errs, fmt.Errorf("points.%s must not be negative, got %d", name, points[name]))
		}
	}
	if t.PlungerForce <= 0 {
		errs = append(errs, fmt.Errorf("plungerForce must be positive, got %g", t.PlungerForce))
	}
	if !(t.Flipper.Strike < 0 && t.Flipper.Rest > 0) {
		errs = append(errs, fmt.Errorf("flipper strike must be negative and rest positive, got %g and %g", t.Flipper.Strike, t.Flipper.Rest))
	}
	if _, err := pinball.ParsePlungerPolicy(t.PlungerPolicy); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// WithPolicy returns t with the plunger policy replaced when policy is set.
func (t Tuning) WithPolicy(policy string) (Tuning, error) {
	if policy == "" {
		return t, nil
	}
	if _, err := pinball.ParsePlungerPolicy(policy); err != nil {
		return Tuning{}, err
	}
	t.PlungerPolicy = policy
	return t, nil
}

// SessionOptions converts validated tuning to session options.
func (t Tuning) SessionOptions(debug bool) pinball.Options {
	return pinball.Options{
		StepHz:        t.StepHz,
		StartingLives: t.StartingLives,
		Points:        t.Points,
		PlungerForce:  t.PlungerForce,
		FlipperStrike: t.Flipper.Strike,
		FlipperRest:   t.Flipper.Rest,
		PlungerPolicy: pinball.PlungerPolicy(t.PlungerPolicy),
		Debug:         debug,
	}
}

// SessionOptions loads the tuning file named by the config, applies the
// policy override and returns the session options.
func (c *Config) SessionOptions() (pinball.Options, error) {
	t, err := LoadTuning(c.TuningFile)
	if err != nil {
		return pinball.Options{}, err
	}
	t, err = t.WithPolicy(c.PlungerPolicy)
	if err != nil {
		return pinball.Options{}, fmt.Errorf("PINBALL_PLUNGER_POLICY: %w", err)
	}
	return t.SessionOptions(c.Debug), nil
}
