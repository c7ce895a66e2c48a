// Package shell implements the interactive line mode: "table query" lines
// plus a few "!" commands, with readline-style history.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/DeusData/starscope/internal/db"
)

// Help is printed when the shell starts and on !help.
const Help = `Normal input is of the form
  table query
and returns the result of that query. The following special commands
are also recognized:
  !summary
  !update
  !help
  !quit
`

// Shell runs commands against one database.
type Shell struct {
	DB *db.DB
	// WritePath, when set, receives the database after every !update.
	WritePath string
	Out       io.Writer
	Err       io.Writer
}

// Exec runs one input line and reports whether the session should end.
func (s *Shell) Exec(ctx context.Context, input string) (quit bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if !strings.HasPrefix(input, "!") {
		RunQuery(s.Out, s.Err, s.DB, input, " ")
		return false
	}

	switch input[1:] {
	case "summary":
		PrintSummary(s.Out, s.DB.Summary())
	case "update":
		s.update(ctx)
	case "help":
		fmt.Fprint(s.Out, Help)
	case "quit":
		return true
	default:
		fmt.Fprintf(s.Out, "Unknown command: %s\n", input)
	}
	return false
}

func (s *Shell) update(ctx context.Context) {
	report, err := s.DB.Update(ctx)
	if err != nil {
		fmt.Fprintf(s.Err, "update: %v\n", err)
		return
	}
	PrintReport(s.Out, s.Err, report)
	if s.WritePath == "" {
		return
	}
	if err := s.DB.Save(s.WritePath); err != nil {
		fmt.Fprintf(s.Err, "save: %v\n", err)
	}
}

// Run reads lines from the terminal until !quit, Ctrl+C or EOF. History
// is loaded from and saved to historyFile when it is non-empty.
func (s *Shell) Run(ctx context.Context, historyFile string) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer saveHistory(line, historyFile)
	}

	fmt.Fprintln(s.Out, Help)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(s.Out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if s.Exec(ctx, input) {
			return nil
		}
	}
}

func saveHistory(line *liner.State, path string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}
