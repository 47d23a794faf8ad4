// Package prompt asks the user yes/no questions on the controlling terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Guard decides whether an existing output file may be replaced. Tests
// supply their own reader, writer and terminal check.
type Guard struct {
	In  io.Reader
	Out io.Writer
	TTY func() bool
}

// Terminal returns a Guard wired to stdin/stdout.
func Terminal() Guard {
	return Guard{
		In:  os.Stdin,
		Out: os.Stdout,
		TTY: func() bool {
			info, err := os.Stdin.Stat()
			if err != nil {
				return false
			}
			return info.Mode()&os.ModeCharDevice != 0
		},
	}
}

// AllowOverwrite returns true when the user consents to replacing path.
// assumeYes skips the question. Without a terminal the answer is an error:
// a scripted run must opt in with --yes rather than block on stdin.
func (g Guard) AllowOverwrite(path string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if g.TTY == nil || !g.TTY() {
		return false, fmt.Errorf("%s exists and stdin is not a terminal; pass --yes to overwrite it", path)
	}
	if g.Out != nil {
		fmt.Fprintf(g.Out, "%s already exists. Overwrite it? [y/N] ", path)
	}
	answer, err := bufio.NewReader(g.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
