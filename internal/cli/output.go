package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer

	header *color.Color
	good   *color.Color
	warn   *color.Color
	muted  *color.Color
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer, noColor bool) *Output {
	o := &Output{
		format: format,
		w:      w,
		header: color.New(color.Bold),
		good:   color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		muted:  color.New(color.FgHiBlack),
	}
	if noColor {
		for _, c := range []*color.Color{o.header, o.good, o.warn, o.muted} {
			c.DisableColor()
		}
	}
	return o
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintEvent outputs one streamed event with a local timestamp
func (o *Output) PrintEvent(at time.Time, event string, data json.RawMessage) {
	if o.format == "json" {
		o.printJSON(StreamEvent{Time: at, Event: event, Data: data})
		return
	}

	ts := o.muted.Sprint(at.Format("15:04:05"))
	var users []OnlineUser
	if event == "onlineUsers" && json.Unmarshal(data, &users) == nil {
		names := make([]string, len(users))
		for i, u := range users {
			names[i] = u.Username
		}
		fmt.Fprintf(o.w, "[%s] %s (%d): %s\n", ts, o.header.Sprint(event), len(users), strings.Join(names, ", "))
		return
	}

	display := strings.ReplaceAll(string(data), "\n", " ")
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	fmt.Fprintf(o.w, "[%s] %s: %s\n", ts, o.warn.Sprint(event), display)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case ScoreRecord:
		o.printScoreRecord(v)
	case Rank:
		o.printRank(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case TopRanking:
		o.printTopRanking(v)
	case Presence:
		o.printPresence(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AuthResult combines user and token
type AuthResult struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ScoreRecord response type
type ScoreRecord struct {
	UserID     string    `json:"user_id"`
	Score      int       `json:"score"`
	ComputedAt time.Time `json:"computed_at"`
}

// Rank response type
type Rank struct {
	UserID     string `json:"user_id"`
	Rank       int    `json:"rank"`
	TotalUsers int    `json:"total_users"`
}

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Leaderboard response type
type Leaderboard struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"total_pages"`
}

// TopRanking response type
type TopRanking struct {
	Ranking []ScoreRecord `json:"ranking"`
}

// OnlineUser response type
type OnlineUser struct {
	Username string `json:"username"`
}

// Presence response type
type Presence struct {
	OnlineUsers []OnlineUser `json:"online_users"`
	Count       int          `json:"count"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Online      int    `json:"online"`
	Connections int    `json:"connections"`
	Watchers    int    `json:"watchers"`
}

// StreamEvent is a streamed SSE or WebSocket event in JSON output
type StreamEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (o *Output) printUser(u User) {
	fmt.Fprintf(o.w, "User: %s (%s)\n", o.header.Sprint(u.Username), u.ID)
	fmt.Fprintf(o.w, "Role: %s\n", u.Role)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Fprintf(o.w, "Token: %s\n", a.SessionToken)
	fmt.Fprintf(o.w, "Expires: %s\n", a.ExpiresAt.Local().Format(time.RFC3339))
}

func (o *Output) printScoreRecord(s ScoreRecord) {
	fmt.Fprintf(o.w, "User: %s\n", s.UserID)
	fmt.Fprintf(o.w, "Score: %s\n", o.good.Sprint(s.Score))
	fmt.Fprintf(o.w, "Computed: %s\n", s.ComputedAt.Local().Format(time.RFC3339))
}

func (o *Output) printRank(r Rank) {
	fmt.Fprintf(o.w, "User: %s\n", r.UserID)
	fmt.Fprintf(o.w, "Rank: %s of %d\n", o.good.Sprint(r.Rank), r.TotalUsers)
}

func (o *Output) printLeaderboard(b Leaderboard) {
	fmt.Fprintln(o.w, o.header.Sprintf("Leaderboard (page %d of %d, %d users)", b.Page, b.TotalPages, b.Total))
	if len(b.Leaderboard) == 0 {
		fmt.Fprintln(o.w, o.muted.Sprint("  (no entries)"))
		return
	}
	for _, e := range b.Leaderboard {
		name := e.Username
		if name == "" {
			name = o.muted.Sprint("(deleted)")
		}
		fmt.Fprintf(o.w, "  %4d  %-32s %s\n", e.Rank, name, o.good.Sprint(e.Score))
	}
}

func (o *Output) printTopRanking(t TopRanking) {
	fmt.Fprintln(o.w, o.header.Sprintf("Top %d", len(t.Ranking)))
	for i, r := range t.Ranking {
		fmt.Fprintf(o.w, "  %4d  %-36s %s\n", i+1, r.UserID, o.good.Sprint(r.Score))
	}
}

func (o *Output) printPresence(p Presence) {
	fmt.Fprintln(o.w, o.header.Sprintf("Online (%d)", p.Count))
	for _, u := range p.OnlineUsers {
		fmt.Fprintf(o.w, "  - %s\n", u.Username)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	status := o.good.Sprint(h.Status)
	if h.Status != "ok" {
		status = o.warn.Sprint(h.Status)
	}
	fmt.Fprintf(o.w, "Status: %s\n", status)
	fmt.Fprintf(o.w, "Storage: %s\n", h.Storage)
	fmt.Fprintf(o.w, "Online: %d (%d connections, %d watchers)\n", h.Online, h.Connections, h.Watchers)
}
