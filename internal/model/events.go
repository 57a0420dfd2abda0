package model

import "time"

// EventKind names a server to client event
type EventKind string

const (
	// Lobby lifecycle
	EventLobbyCreated        EventKind = "lobby_created"
	EventLobbyJoined         EventKind = "lobby_joined"
	EventJoinError           EventKind = "join_error"
	EventSpectating          EventKind = "spectating"
	EventLobbyUpdate         EventKind = "lobby_update"
	EventLobbyLeft           EventKind = "lobby_left"
	EventLobbyList           EventKind = "lobby_list"
	EventLobbyListUpdate     EventKind = "lobby_list_update"
	EventSpectatorListUpdate EventKind = "spectator_list_update"

	// Match
	EventGameStart      EventKind = "game_start"
	EventTestResults    EventKind = "test_results"
	EventProgressUpdate EventKind = "progress_update"
	EventGameFinished   EventKind = "game_finished"

	// Attacks
	EventAttackReceived EventKind = "attack_received"
	EventAttackFeed     EventKind = "attack_feed"
	EventAmmoUpdate     EventKind = "ammo_update"

	// Spectator relay
	EventSpectatorChatMessage   EventKind = "spectator_chat_message"
	EventSpectatorEmojiReaction EventKind = "spectator_emoji_reaction"
	EventLiveCodeUpdate         EventKind = "live_code_update"

	// Connection
	EventError EventKind = "error"
	EventPong  EventKind = "pong"
)

// PlayerView is the wire representation of a seated player
type PlayerView struct {
	ID          ParticipantID `json:"id"`
	Name        string        `json:"name"`
	TestsPassed int           `json:"testsPassed"`
	Completed   bool          `json:"completed"`
	Ammo        int           `json:"ammo"`
}

// SpectatorView is the wire representation of a spectator
type SpectatorView struct {
	ID   ParticipantID `json:"id"`
	Name string        `json:"name"`
}

// LobbyView is the wire representation of a lobby, without its credential
type LobbyView struct {
	ID             LobbyID         `json:"id"`
	Name           string          `json:"name"`
	Visibility     Visibility      `json:"visibility"`
	Status         LobbyStatus     `json:"status"`
	Players        []PlayerView    `json:"players"`
	Spectators     []SpectatorView `json:"spectators"`
	MaxPlayers     int             `json:"maxPlayers"`
	ProblemID      ProblemID       `json:"problemId"`
	Winner         ParticipantID   `json:"winner,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	MatchStartedAt *time.Time      `json:"matchStartedAt,omitempty"`
}

// ViewOf builds the wire view of a lobby
func ViewOf(l *Lobby) LobbyView {
	players := make([]PlayerView, len(l.Players))
	for i, p := range l.Players {
		players[i] = PlayerViewOf(p)
	}
	spectators := make([]SpectatorView, 0, len(l.Spectators))
	for _, s := range l.SpectatorList() {
		spectators = append(spectators, SpectatorView{ID: s.ID, Name: s.DisplayName})
	}
	var started *time.Time
	if !l.MatchStartedAt.IsZero() {
		t := l.MatchStartedAt
		started = &t
	}
	return LobbyView{
		ID:             l.ID,
		Name:           l.Name,
		Visibility:     l.Visibility,
		Status:         l.Status,
		Players:        players,
		Spectators:     spectators,
		MaxPlayers:     MaxPlayers,
		ProblemID:      l.Problem.ID,
		Winner:         l.Winner,
		CreatedAt:      l.CreatedAt,
		MatchStartedAt: started,
	}
}

// PlayerViewOf builds the wire view of a player
func PlayerViewOf(p Player) PlayerView {
	return PlayerView{
		ID:          p.ID,
		Name:        p.DisplayName,
		TestsPassed: p.TestsPassed,
		Completed:   p.Correct,
		Ammo:        p.Ammo,
	}
}

// LobbyCreatedPayload is sent to the host after create_lobby
type LobbyCreatedPayload struct {
	LobbyID  LobbyID       `json:"lobbyId"`
	PlayerID ParticipantID `json:"playerId"`
	Lobby    LobbyView     `json:"lobby"`
}

// LobbyJoinedPayload is sent to a player after join_lobby
type LobbyJoinedPayload struct {
	LobbyID     LobbyID       `json:"lobbyId"`
	PlayerID    ParticipantID `json:"playerId"`
	Lobby       LobbyView     `json:"lobby"`
	PlayerCount int           `json:"playerCount"`
}

// SpectatingPayload is sent to a spectator after join_as_spectator
type SpectatingPayload struct {
	LobbyID     LobbyID       `json:"lobbyId"`
	SpectatorID ParticipantID `json:"spectatorId"`
	Lobby       LobbyView     `json:"lobby"`
}

// LobbyUpdatePayload is broadcast on any roster or status change
type LobbyUpdatePayload struct {
	Lobby   LobbyView    `json:"lobby"`
	Players []PlayerView `json:"players"`
}

// LobbyListPayload answers list_lobbies and is pushed on lobby changes
type LobbyListPayload struct {
	Lobbies    []LobbySummary `json:"lobbies"`
	Pagination Pagination     `json:"pagination"`
}

// Pagination describes one page of the lobby listing
type Pagination struct {
	Page         int  `json:"page"`
	PerPage      int  `json:"perPage"`
	TotalPages   int  `json:"totalPages"`
	TotalLobbies int  `json:"totalLobbies"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
}

// LobbyLeftPayload acknowledges a leave, or tells spectators their lobby closed
type LobbyLeftPayload struct {
	LobbyID LobbyID `json:"lobbyId"`
	Message string  `json:"message"`
}

// SpectatorListPayload is broadcast when the spectator roster changes
type SpectatorListPayload struct {
	Spectators []SpectatorView `json:"spectators"`
}

// ProblemView is the problem as shown to players, without expected outputs
type ProblemView struct {
	ID          ProblemID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Template    string    `json:"template"`
	TimeLimit   int       `json:"timeLimit"`
	TestCount   int       `json:"testCount"`
}

// GameStartPayload is broadcast when the second player is seated
type GameStartPayload struct {
	Problem   ProblemView  `json:"problem"`
	Players   []PlayerView `json:"players"`
	TimeLimit int          `json:"timeLimit"`
	StartedAt time.Time    `json:"startedAt"`
}

// TestResultsPayload is sent to the submitter
type TestResultsPayload struct {
	Passed    int      `json:"passed"`
	Total     int      `json:"total"`
	Completed bool     `json:"completed"`
	Runtime   int64    `json:"runtime"`
	Errors    []string `json:"errors"`
	Won       bool     `json:"won"`
	Late      bool     `json:"late"`
}

// ProgressUpdatePayload is broadcast after each applied submission
type ProgressUpdatePayload struct {
	Players []PlayerView `json:"players"`
}

// PlayerScore is one player's line of the final scoreboard
type PlayerScore struct {
	ParticipantID ParticipantID `json:"participantId"`
	Name          string        `json:"name"`
	TestsPassed   int           `json:"testsPassed"`
	TotalTests    int           `json:"totalTests"`
	Completed     bool          `json:"completed"`
	// milliseconds from match start to the completing submission, nil unless completed
	CompletionTime *int64 `json:"completionTime"`
}

// GameFinishedPayload is broadcast once when a lobby finishes
type GameFinishedPayload struct {
	Winner       string        `json:"winner"`
	WinnerID     ParticipantID `json:"winnerId"`
	Reason       FinishReason  `json:"reason"`
	FinalScores  []PlayerScore `json:"finalScores"`
	GameDuration int64         `json:"gameDuration"`
}

// ScoreOf returns the final score line for a participant
func (p GameFinishedPayload) ScoreOf(id ParticipantID) (PlayerScore, bool) {
	for _, s := range p.FinalScores {
		if s.ParticipantID == id {
			return s, true
		}
	}
	return PlayerScore{}, false
}

// AttackReceivedPayload is sent to the attacked player only
type AttackReceivedPayload struct {
	AttackType AttackType `json:"attackType"`
	Attacker   string     `json:"attacker"`
	DurationMs int64      `json:"durationMs"`
}

// AttackFeedPayload shows spectators who attacked whom
type AttackFeedPayload struct {
	AttackType AttackType `json:"attackType"`
	Attacker   string     `json:"attacker"`
	Target     string     `json:"target"`
}

// AmmoUpdatePayload tells a player their remaining ammo and cooldown
type AmmoUpdatePayload struct {
	Ammo          int       `json:"ammo"`
	CooldownUntil time.Time `json:"cooldownUntil"`
}

// SpectatorChatPayload is a relayed chat line
type SpectatorChatPayload struct {
	SpectatorName string    `json:"spectatorName"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// SpectatorEmojiPayload is a relayed emoji reaction
type SpectatorEmojiPayload struct {
	SpectatorName string    `json:"spectatorName"`
	Emoji         string    `json:"emoji"`
	Timestamp     time.Time `json:"timestamp"`
}

// LiveCodePayload is a relayed editor snapshot
type LiveCodePayload struct {
	PlayerID ParticipantID `json:"playerId"`
	Code     string        `json:"code"`
}

// ErrorPayload reports a rejected command
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongPayload answers a client ping
type PongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}
