package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mcoot/codeduel-go/internal/api/response"
	"github.com/mcoot/codeduel-go/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format  string
	verbose bool
	out     io.Writer
	errOut  io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format, out: os.Stdout, errOut: os.Stderr}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errOut, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.out, string(data))
	} else {
		_, _ = fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case model.LobbyListPayload:
		o.printLobbyList(v)
	case model.LobbyView:
		o.printLobby(v)
	case response.MatchList:
		o.printMatches(v)
	case response.User:
		_, _ = fmt.Fprintf(o.out, "User: %s (%s)\nSince: %s\n", v.Name, v.ID, v.CreatedAt.Format("2006-01-02"))
	case response.Health:
		_, _ = fmt.Fprintf(o.out, "Status: %s\nLobbies: %d\nConnections: %d\n", v.Status, v.Lobbies, v.Connections)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printLobbyList(l model.LobbyListPayload) {
	if len(l.Lobbies) == 0 {
		_, _ = fmt.Fprintln(o.out, "No open lobbies")
		return
	}
	for _, s := range l.Lobbies {
		_, _ = fmt.Fprintf(o.out, "%s  %-40s %d/%d  %s\n", s.ID, s.Name, s.PlayerCount, s.MaxPlayers, s.Visibility)
	}
	p := l.Pagination
	_, _ = fmt.Fprintf(o.out, "Page %d of %d (%d lobbies)\n", p.Page, p.TotalPages, p.TotalLobbies)
}

func (o *Output) printLobby(l model.LobbyView) {
	_, _ = fmt.Fprintf(o.out, "Lobby: %s (%s)\n", l.Name, l.ID)
	_, _ = fmt.Fprintf(o.out, "Status: %s\n", l.Status)
	_, _ = fmt.Fprintf(o.out, "Problem: %s\n", l.ProblemID)
	_, _ = fmt.Fprintf(o.out, "Players (%d/%d):\n", len(l.Players), l.MaxPlayers)
	for _, p := range l.Players {
		mark := ""
		if p.ID == l.Winner {
			mark = " [winner]"
		}
		_, _ = fmt.Fprintf(o.out, "  - %s (%s) %d tests passed%s\n", p.Name, p.ID, p.TestsPassed, mark)
	}
	if len(l.Spectators) > 0 {
		_, _ = fmt.Fprintf(o.out, "Spectators (%d):\n", len(l.Spectators))
		for _, s := range l.Spectators {
			_, _ = fmt.Fprintf(o.out, "  - %s\n", s.Name)
		}
	}
}

func (o *Output) printMatches(m response.MatchList) {
	if len(m.Matches) == 0 {
		_, _ = fmt.Fprintln(o.out, "No matches played yet")
		return
	}
	for _, match := range m.Matches {
		winner := "none"
		if match.Winner != nil {
			winner = *match.Winner
		}
		_, _ = fmt.Fprintf(o.out, "%s  winner: %-12s %-8s %6.1fs\n",
			match.LobbyID, winner, match.Reason, float64(match.DurationMs)/1000)
	}
}
