package pinball

// Status represents whether a session can still be stepped.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusFailed Status = "FAILED"
)

// DefaultLives is the number of lives a session starts with and returns to
// after running out.
const DefaultLives = 3

// Pending holds the zone flags raised since the last tick.
type Pending struct {
	OutOfBounds   bool `json:"out_of_bounds"`
	PlungerPulled bool `json:"plunger_pulled"`
	ScoreA        bool `json:"score_a"`
	ScoreB        bool `json:"score_b"`
	ScoreC        bool `json:"score_c"`
}

// Any reports whether any flag is raised.
func (p Pending) Any() bool {
	return p.OutOfBounds || p.PlungerPulled || p.ScoreA || p.ScoreB || p.ScoreC
}

// GameState is the score/lives record of one session. It is owned by the
// session and written only from the step path.
type GameState struct {
	Score   int     `json:"score"`
	Lives   int     `json:"lives"`
	Resets  int     `json:"resets"` // times the lives ran out
	Pending Pending `json:"pending"`

	startLives int
}

// NewGameState creates a state with the given starting lives.
func NewGameState(lives int) *GameState {
	return &GameState{Lives: lives, startLives: lives}
}

// LoseLife takes one life. Running out restarts the session with full lives
// and zero score; it returns true when that happened.
func (g *GameState) LoseLife() bool {
	g.Lives--
	if g.Lives >= 0 {
		return false
	}
	g.Lives = g.startLives
	g.Score = 0
	g.Resets++
	return true
}

// AddPoints adds non-negative points to the score.
func (g *GameState) AddPoints(points int) {
	if points > 0 {
		g.Score += points
	}
}
