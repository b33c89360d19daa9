package engine

const (
	// NotEntered is the position of a token that has not entered the board yet.
	NotEntered = -1

	// DefaultBoardSize is the home square of the standard board.
	DefaultBoardSize = 30

	// Validation constants
	MinBoardSize = 1
	MaxBoardSize = 500
	MinDice      = 1
	MaxDice      = 6
	EntryRoll    = 6
	BonusRoll    = 6

	// ProgressSegments is the width of the board formatter's progress bar.
	ProgressSegments = 10
)

// Player is a roster entry. Its ID is supplied by the caller.
type Player struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Rules holds the tunable parameters of the simplified board.
type Rules struct {
	BoardSize int `json:"board_size"`
}

// State is the complete game state of one session.
//
// Players are kept in join order, which is also turn order and the index
// space of TurnIndex. Positions holds exactly one entry per player.
type State struct {
	Players   []Player      `json:"players"`
	Positions map[int64]int `json:"positions"`
	TurnIndex int           `json:"turn_index"`
	Started   bool          `json:"started"`
}

// Turn is the input of a single dice resolution.
type Turn struct {
	Players   []Player
	Positions map[int64]int
	TurnIndex int
	Dice      int
}

// Outcome describes what a resolved roll does to the board.
type Outcome struct {
	Player    Player   `json:"player"`
	Dice      int      `json:"dice"`
	From      int      `json:"from"`
	To        int      `json:"to"`
	Moved     bool     `json:"moved"`
	ExtraTurn bool     `json:"extra_turn"`
	Captures  []Player `json:"captures,omitempty"`
	Winner    *Player  `json:"winner,omitempty"`
	NextTurn  int      `json:"next_turn"`
}
