package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/koustreak/dsneditor/internal/editor"
)

// lineDialog answers editor questions on a line-oriented terminal.
type lineDialog struct {
	in  *bufio.Reader
	out io.Writer
	// assumeYes answers every question with yes without asking.
	assumeYes bool
	// interactive is false when nobody can answer; questions then get no.
	interactive bool
}

var _ editor.Dialog = (*lineDialog)(nil)

func newLineDialog(in io.Reader, out io.Writer, assumeYes bool) *lineDialog {
	return &lineDialog{
		in:          bufio.NewReader(in),
		out:         out,
		assumeYes:   assumeYes,
		interactive: isTerminal(in),
	}
}

func (d *lineDialog) Confirm(question string) bool {
	if d.assumeYes {
		fmt.Fprintf(d.out, "%s yes\n", question)
		return true
	}
	if !d.interactive {
		fmt.Fprintf(d.out, "%s no (use --yes to confirm)\n", question)
		return false
	}

	fmt.Fprintf(d.out, "%s [y/N]: ", question)
	answer, _ := d.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (d *lineDialog) Notify(severity editor.Severity, message string) {
	if severity == editor.SeverityError {
		fmt.Fprintln(d.out, color.RedString("✗"), message)
		return
	}
	fmt.Fprintln(d.out, color.GreenString("✓"), message)
}

// promptSecret prompts for a secret without echoing it to the terminal.
func promptSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	// piped input
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
