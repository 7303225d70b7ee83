// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"snowdemo/cli/internal/errors"
	"snowdemo/cli/internal/llm"
	"snowdemo/cli/internal/logging"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

var spinnerFrames = []string{"-", "\\", "|", "/"}

// startInlineSpinner draws frames followed by text on one line until the
// returned stop function is called, which clears the line. The cursor is
// hidden while the spinner runs.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	var once sync.Once
	cursor.Hide()
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], text)
				i++
			}
		}
	}()
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			cursor.Show()
		})
	}
}

// printMessage renders one transcript entry.
func printMessage(m llm.Message) {
	switch m.Role {
	case llm.RoleUser:
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("you › ") + m.Content)
	case llm.RoleAssistant:
		pterm.Println(pterm.NewStyle(pterm.FgGreen, pterm.Bold).Sprint("assistant › ") + m.Content)
	default:
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint(string(m.Role)+" › ") + m.Content)
	}
	pterm.Println()
}

// printKV renders a sorted key/value map inside a titled box.
func printKV(title string, kv map[string]string) {
	keys := make([]string, 0, len(kv))
	width := 0
	for k := range kv {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s",
			pterm.NewStyle(pterm.FgLightCyan).Sprintf("%-*s", width+1, k+":"),
			kv[k])
	}
	pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(title)).
		Println(b.String())
}

// shownError marks an error that has already been printed to the user.
type shownError struct{ err error }

func (e shownError) Error() string { return e.err.Error() }
func (e shownError) Unwrap() error { return e.err }

// reportError prints err with remediation hints for warehouse failures and
// returns it marked as shown so Execute does not print it again.
func reportError(context string, err error) error {
	switch errors.KindOf(err) {
	case errors.SessionFailed, errors.RemoteCallFailed:
		logging.PresentRemoteError(err)
	default:
		pterm.Error.Println(logging.PresentError(context, err))
	}
	return shownError{err}
}
