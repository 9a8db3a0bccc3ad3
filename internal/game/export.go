package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportResult appends a finished game to a plain text log
func ExportResult(res GameResult, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	if fileExists {
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Room %s - %s (%s)\n", res.Code, res.MapName, res.Mode))
	sb.WriteString(fmt.Sprintf("Started: %s\n", res.StartedAt.Format(time.DateTime)))
	sb.WriteString(fmt.Sprintf("Ended:   %s (%s)\n", res.EndedAt.Format(time.DateTime), res.EndedAt.Sub(res.StartedAt).Round(time.Second)))
	sb.WriteString(strings.Repeat("=", 50) + "\n")

	winner := res.Winner
	if winner == "" {
		winner = "nobody"
	}
	sb.WriteString(fmt.Sprintf("Winner: %s\n\n", winner))

	players := append([]Player(nil), res.Players...)
	sort.SliceStable(players, func(i, j int) bool { return players[i].Wins > players[j].Wins })
	sb.WriteString("Players:\n")
	for _, p := range players {
		kind := "human"
		if p.IsVirtual {
			kind = "bot"
		}
		sb.WriteString(fmt.Sprintf("- %s (%s, %s): %d win(s)\n", p.Name, p.Character, kind, p.Wins))
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
