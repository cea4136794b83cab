// Command analyze prints quick, human-readable heuristics about the sessions
// currently held by a running bot. It summarizes lifecycle states, per-channel
// activity, board fill, and highlights pending invites that have gone stale.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// AnalysisSession is a light struct for reading sessions from the REST API.
type AnalysisSession struct {
	ID        int64     `json:"id"`
	Creator   string    `json:"creator"`
	Opponent  string    `json:"opponent"`
	State     string    `json:"state"`
	Board     []string  `json:"board"`
	Turn      string    `json:"turn"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalysisReport mirrors the list endpoint's envelope. Total counts all
// sessions on the server; Count is just the returned page.
type AnalysisReport struct {
	Count    int               `json:"count"`
	Total    int               `json:"total"`
	Sessions []AnalysisSession `json:"sessions"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of a running bot")
	staleAfter := flag.Duration("stale", 24*time.Hour, "age after which a pending invite counts as stale")
	flag.Parse()

	report, err := fetchSessions(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching sessions: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== Analyzing %d sessions from %s ===\n", report.Total, *addr)
	analyzeSessions(report.Sessions, *staleAfter)
}

func fetchSessions(baseURL string) (*AnalysisReport, error) {
	resp, err := http.Get(strings.TrimRight(baseURL, "/") + "/api/sessions?sort=created&order=asc")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var report AnalysisReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &report, nil
}

func analyzeSessions(sessions []AnalysisSession, staleAfter time.Duration) {
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return
	}

	states := map[string]int{}
	channels := map[string]int{}
	var stale []AnalysisSession

	for _, sess := range sessions {
		states[sess.State]++
		channels[sess.Channel]++

		fmt.Printf("\nSession %d [%s]\n", sess.ID, sess.State)
		fmt.Printf("Creator: %s (X)\n", sess.Creator)
		if sess.Opponent != "" {
			fmt.Printf("Opponent: %s (O)\n", sess.Opponent)
		} else {
			fmt.Printf("Opponent: (waiting)\n")
		}
		fmt.Printf("Channel: %s\n", sess.Channel)
		fmt.Printf("Moves Played: %d / 9\n", movesPlayed(sess.Board))
		if sess.State == "active" {
			fmt.Printf("Next Turn: %s\n", sess.Turn)
		}
		fmt.Printf("Created: %s (last move %s ago)\n",
			sess.CreatedAt.Format(time.RFC3339), time.Since(sess.UpdatedAt).Round(time.Second))

		if sess.State == "pending" && time.Since(sess.CreatedAt) > staleAfter {
			stale = append(stale, sess)
		}
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Pending: %d, Active: %d\n", states["pending"], states["active"])
	fmt.Printf("Channels in use: %d\n", len(channels))

	if len(stale) > 0 {
		fmt.Printf("⚠️  WARNING: %d pending invites are older than %s\n", len(stale), staleAfter)
		for i, sess := range stale {
			if i < 5 { // Show first 5 stale invites
				fmt.Printf("   Stale: session %d by %s, created %s\n",
					sess.ID, sess.Creator, sess.CreatedAt.Format(time.RFC3339))
			}
		}
		if len(stale) > 5 {
			fmt.Printf("   ... and %d more\n", len(stale)-5)
		}
	} else {
		fmt.Printf("✅ No stale pending invites\n")
	}
}

// movesPlayed counts non-empty cells in the wire representation of a board.
func movesPlayed(cells []string) int {
	n := 0
	for _, c := range cells {
		if c == "X" || c == "O" {
			n++
		}
	}
	return n
}
