package domain

import "time"

// Status is the lifecycle state of a game. Every status other than
// StatusInProgress is terminal.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusFail       Status = "fail"
	StatusMoney      Status = "money"
	StatusTimeout    Status = "timeout"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s != StatusInProgress
}

// HelpType names a one-time-per-game aid.
type HelpType string

const (
	HelpAudience   HelpType = "audience_help"
	HelpFiftyFifty HelpType = "fifty_fifty"
	HelpFriendCall HelpType = "friend_call"
)

// AnswerKeys are the variant keys of every game question, in display order.
var AnswerKeys = []string{"a", "b", "c", "d"}

// Valid reports whether h is a known help type.
func (h HelpType) Valid() bool {
	switch h {
	case HelpAudience, HelpFiftyFifty, HelpFriendCall:
		return true
	}
	return false
}

// Question is a bank entry. Answers[0] is always the correct answer.
type Question struct {
	ID      string    `json:"id" yaml:"id"`
	Level   int       `json:"level" yaml:"level"`
	Text    string    `json:"text" yaml:"text"`
	Answers [4]string `json:"answers" yaml:"answers"`
}

// HelpPayload holds what each used help revealed for a question.
type HelpPayload struct {
	AudienceHelp map[string]int `json:"audience_help,omitempty"`
	FiftyFifty   []string       `json:"fifty_fifty,omitempty"`
	FriendCall   string         `json:"friend_call,omitempty"`
}

// GameQuestion is a question placed at one level of a game.
type GameQuestion struct {
	QuestionID string            `json:"questionId"`
	Level      int               `json:"level"`
	Text       string            `json:"text"`
	Variants   map[string]string `json:"variants"`
	CorrectKey string            `json:"correctKey"`
	Help       HelpPayload       `json:"help"`
}

// Game is one play-through owned by a single user.
type Game struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"ownerId"`
	CurrentLevel int               `json:"currentLevel"`
	Status       Status            `json:"status"`
	Prize        int64             `json:"prize"`
	HelpsUsed    map[HelpType]bool `json:"helpsUsed"`
	Questions    []GameQuestion    `json:"questions"`
	CreatedAt    time.Time         `json:"createdAt"`
	FinishedAt   *time.Time        `json:"finishedAt,omitempty"`
	Version      int64             `json:"version"`
}

// Finished reports whether the game reached a terminal status.
func (g Game) Finished() bool {
	return g.Status.Terminal()
}

// HelpUsed reports whether h was already used in this game.
func (g Game) HelpUsed(h HelpType) bool {
	return g.HelpsUsed[h]
}

// CurrentQuestion returns the question at the current level, or nil once the
// level ran past the last question.
func (g Game) CurrentQuestion() *GameQuestion {
	if g.CurrentLevel < 0 || g.CurrentLevel >= len(g.Questions) {
		return nil
	}
	return &g.Questions[g.CurrentLevel]
}

// Clone returns a deep copy so transitions never alias the caller's maps and slices.
func (g Game) Clone() Game {
	out := g
	out.HelpsUsed = make(map[HelpType]bool, len(g.HelpsUsed))
	for k, v := range g.HelpsUsed {
		out.HelpsUsed[k] = v
	}
	out.Questions = make([]GameQuestion, len(g.Questions))
	for i, q := range g.Questions {
		out.Questions[i] = q.clone()
	}
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

func (q GameQuestion) clone() GameQuestion {
	out := q
	out.Variants = make(map[string]string, len(q.Variants))
	for k, v := range q.Variants {
		out.Variants[k] = v
	}
	if q.Help.AudienceHelp != nil {
		out.Help.AudienceHelp = make(map[string]int, len(q.Help.AudienceHelp))
		for k, v := range q.Help.AudienceHelp {
			out.Help.AudienceHelp[k] = v
		}
	}
	if q.Help.FiftyFifty != nil {
		out.Help.FiftyFifty = append([]string(nil), q.Help.FiftyFifty...)
	}
	return out
}

// User is a player. Balance only grows through prize settlement.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

// GameSummary is the profile view of a game.
type GameSummary struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	CurrentLevel int        `json:"currentLevel"`
	Prize        int64      `json:"prize"`
	CreatedAt    time.Time  `json:"createdAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// Profile is a user page: the user, their games newest first, and whether the
// viewer looks at their own profile.
type Profile struct {
	User  User          `json:"user"`
	Games []GameSummary `json:"games"`
	Own   bool          `json:"own"`
}
