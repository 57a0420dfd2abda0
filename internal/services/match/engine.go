// Package match owns the lobby status machine and submission arbitration.
//
// waiting --(second player seated)--> playing --(first correct or forfeit)--> finished
//
// Grading happens outside the lobby lock. The result is applied under the
// lock only if the lobby is still playing; otherwise it is reported as late
// and changes nothing.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/codeduel-go/internal/broadcast"
	"github.com/mcoot/codeduel-go/internal/dependencies/clock"
	"github.com/mcoot/codeduel-go/internal/grader"
	"github.com/mcoot/codeduel-go/internal/lobbystore"
	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/problem"
	"github.com/mcoot/codeduel-go/internal/registry"
)

// Recorder receives finished matches for match history
type Recorder interface {
	RecordMatch(rec model.MatchRecord)
}

// errLate aborts an update whose lobby finished while grading ran
var errLate = errors.New("late result")

// Outcome is a committed finish waiting to be announced
type Outcome struct {
	LobbyID model.LobbyID
	Payload model.GameFinishedPayload
	Record  model.MatchRecord
}

// Engine applies status transitions and submissions
type Engine struct {
	store    *lobbystore.Store
	grader   grader.Grader
	pub      broadcast.Publisher
	recorder Recorder
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewEngine creates a match engine
func NewEngine(
	store *lobbystore.Store,
	g grader.Grader,
	pub broadcast.Publisher,
	recorder Recorder,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		store:    store,
		grader:   g,
		pub:      pub,
		recorder: recorder,
		clock:    clk,
		metrics:  m,
		logger:   logger.With(slog.String("component", "match")),
	}
}

// Start moves a full waiting lobby to playing. It mutates l and is meant to
// run inside the lobby update that seats the second player.
func (e *Engine) Start(l *model.Lobby, now time.Time) error {
	if l.Status != model.StatusWaiting {
		return fmt.Errorf("%w: start from %s", model.ErrInvalidTransition, l.Status)
	}
	if len(l.Players) != model.MaxPlayers {
		return fmt.Errorf("%w: start with %d players", model.ErrInvariantViolation, len(l.Players))
	}
	for i := range l.Players {
		p := &l.Players[i]
		p.TestsPassed = 0
		p.Correct = false
		p.Ammo = 0
		p.CooldownUntil = time.Time{}
		p.LastSubmissionAt = time.Time{}
	}
	l.Status = model.StatusPlaying
	l.MatchStartedAt = now
	return nil
}

// AnnounceStart publishes game_start for a lobby snapshot taken after Start committed
func (e *Engine) AnnounceStart(l *model.Lobby) {
	e.metrics.MatchesStarted.Inc()
	e.pub.Publish(l.ID, model.EventGameStart, model.GameStartPayload{
		Problem:   problem.View(l.Problem),
		Players:   playerViews(l),
		TimeLimit: int(l.Problem.TimeLimit / time.Second),
		StartedAt: l.MatchStartedAt,
	}, registry.Everyone)

	e.logger.Info("match started",
		slog.String("lobby_id", string(l.ID)),
		slog.String("problem_id", string(l.Problem.ID)))
}

// Forfeit finishes a playing lobby in favor of the player who did not leave.
// It mutates l and must run inside the update that removes the leaver, before
// the removal, so final scores still include the leaver.
func (e *Engine) Forfeit(l *model.Lobby, leaver model.ParticipantID, now time.Time) (Outcome, error) {
	if l.Status != model.StatusPlaying {
		return Outcome{}, model.ErrNotPlaying
	}
	if l.GetPlayer(leaver) == nil {
		return Outcome{}, model.ErrUnknownParticipant
	}
	var winner model.ParticipantID
	if opp := l.Opponent(leaver); opp != nil {
		winner = opp.ID
	}
	return e.finish(l, winner, model.FinishForfeit, now), nil
}

// Announce publishes game_finished and hands the result to match history
func (e *Engine) Announce(o Outcome) {
	e.metrics.MatchesFinished.WithLabelValues(string(o.Payload.Reason)).Inc()
	e.pub.Publish(o.LobbyID, model.EventGameFinished, o.Payload, registry.Everyone)
	if e.recorder != nil {
		e.recorder.RecordMatch(o.Record)
	}

	e.logger.Info("match finished",
		slog.String("lobby_id", string(o.LobbyID)),
		slog.String("winner", o.Payload.Winner),
		slog.String("reason", string(o.Payload.Reason)))
}

// Submit grades code for a seated player and arbitrates the result. The
// first correct result committed wins; anything applied after the lobby
// finished comes back with Late set and changes nothing.
func (e *Engine) Submit(ctx context.Context, participant model.ParticipantID, code string) (model.SubmissionResult, error) {
	if strings.TrimSpace(code) == "" {
		return model.SubmissionResult{}, fmt.Errorf("%w: code cannot be empty", model.ErrInvalidMessage)
	}

	lobbyID, ok := e.store.LobbyOf(participant)
	if !ok {
		return model.SubmissionResult{}, model.ErrUnknownParticipant
	}

	var prob model.Problem
	err := e.store.View(lobbyID, func(l *model.Lobby) error {
		if l.Status != model.StatusPlaying {
			return model.ErrNotPlaying
		}
		if l.GetPlayer(participant) == nil {
			return model.ErrUnknownParticipant
		}
		prob = l.Problem
		return nil
	})
	if err != nil {
		return model.SubmissionResult{}, err
	}

	report := e.grade(ctx, code, prob)
	result := model.SubmissionResult{GradeReport: report, Correct: report.AllPassed()}

	var outcome *Outcome
	committed, err := e.store.Update(lobbyID, func(l *model.Lobby) error {
		p := l.GetPlayer(participant)
		if l.Status != model.StatusPlaying || p == nil {
			return errLate
		}
		now := e.clock.Now()
		p.TestsPassed = report.Passed
		p.LastSubmissionAt = now
		if result.Correct {
			p.Correct = true
			o := e.finish(l, participant, model.FinishSolved, now)
			outcome = &o
		}
		return nil
	})
	switch {
	case errors.Is(err, errLate), errors.Is(err, model.ErrLobbyNotFound):
		result.Late = true
		result.Correct = false
		e.metrics.Submissions.WithLabelValues("late").Inc()
		e.reply(lobbyID, participant, result)
		e.logger.Info("late submission discarded",
			slog.String("lobby_id", string(lobbyID)),
			slog.String("participant_id", string(participant)))
		return result, nil
	case err != nil:
		return model.SubmissionResult{}, err
	}

	result.Won = outcome != nil
	e.metrics.Submissions.WithLabelValues(outcomeLabel(result)).Inc()
	e.reply(lobbyID, participant, result)
	e.pub.Publish(lobbyID, model.EventProgressUpdate, model.ProgressUpdatePayload{
		Players: playerViews(committed),
	}, registry.Everyone)
	if outcome != nil {
		e.Announce(*outcome)
	}
	return result, nil
}

// grade runs the grader and turns a grader failure into failed tests
func (e *Engine) grade(ctx context.Context, code string, prob model.Problem) model.GradeReport {
	start := time.Now()
	report, err := e.grader.Grade(ctx, code, prob)
	e.metrics.GradeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.logger.Warn("grading failed",
			slog.String("problem_id", string(prob.ID)),
			slog.Any("error", err))
		return model.GradeReport{
			Total:  len(prob.Tests),
			Errors: []string{fmt.Sprintf("Grading failed: %v", err)},
		}
	}
	return report
}

func (e *Engine) reply(lobbyID model.LobbyID, participant model.ParticipantID, r model.SubmissionResult) {
	e.pub.Publish(lobbyID, model.EventTestResults, model.TestResultsPayload{
		Passed:    r.Passed,
		Total:     r.Total,
		Completed: r.Correct,
		Runtime:   r.Runtime.Milliseconds(),
		Errors:    r.Errors,
		Won:       r.Won,
		Late:      r.Late,
	}, registry.Only(participant))
}

// finish marks l finished and captures the announcement while the roster is intact
func (e *Engine) finish(l *model.Lobby, winner model.ParticipantID, reason model.FinishReason, now time.Time) Outcome {
	l.Status = model.StatusFinished
	l.Winner = winner
	l.FinishReason = reason
	l.FinishedAt = now

	scores := make([]model.PlayerScore, 0, len(l.Players))
	players := make([]model.MatchPlayerRecord, 0, len(l.Players))
	var winnerName string
	var winnerUser model.UserID
	for _, p := range l.Players {
		scores = append(scores, scoreOf(p, len(l.Problem.Tests), l.MatchStartedAt))
		players = append(players, model.MatchPlayerRecord{UserID: p.UserID, Name: p.DisplayName, TestsPassed: p.TestsPassed})
		if p.ID == winner {
			winnerName = p.DisplayName
			winnerUser = p.UserID
		}
	}
	duration := now.Sub(l.MatchStartedAt)
	if duration < 0 {
		duration = 0
	}

	return Outcome{
		LobbyID: l.ID,
		Payload: model.GameFinishedPayload{
			Winner:       winnerName,
			WinnerID:     winner,
			Reason:       reason,
			FinalScores:  scores,
			GameDuration: duration.Milliseconds(),
		},
		Record: model.MatchRecord{
			LobbyID:    l.ID,
			ProblemID:  l.Problem.ID,
			WinnerID:   winnerUser,
			WinnerName: winnerName,
			Reason:     reason,
			Players:    players,
			StartedAt:  l.MatchStartedAt,
			FinishedAt: now,
		},
	}
}

func scoreOf(p model.Player, total int, startedAt time.Time) model.PlayerScore {
	score := model.PlayerScore{
		ParticipantID: p.ID,
		Name:          p.DisplayName,
		TestsPassed:   p.TestsPassed,
		TotalTests:    total,
		Completed:     p.Correct,
	}
	if p.Correct && !p.LastSubmissionAt.IsZero() {
		ms := max(p.LastSubmissionAt.Sub(startedAt), 0).Milliseconds()
		score.CompletionTime = &ms
	}
	return score
}

func playerViews(l *model.Lobby) []model.PlayerView {
	views := make([]model.PlayerView, len(l.Players))
	for i, p := range l.Players {
		views[i] = model.PlayerViewOf(p)
	}
	return views
}

func outcomeLabel(r model.SubmissionResult) string {
	if r.Won {
		return "won"
	}
	return "incorrect"
}
