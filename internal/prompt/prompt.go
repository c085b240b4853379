// Package prompt reads answers from an interactive user.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// ErrNoInput is returned when input ends before an answer is given.
var ErrNoInput = errors.New("no input available")

var yes = regexp.MustCompile(`(?i)^y(es)?$`)

// Prompter asks questions on Out and reads answers from In.
type Prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// New returns a Prompter. Passing os.Stdin enables hidden password entry
// when it is a terminal.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, reader: bufio.NewReader(in)}
}

// Interactive reports whether input comes from a terminal.
func (p *Prompter) Interactive() bool {
	_, ok := p.terminal()
	return ok
}

func (p *Prompter) terminal() (*os.File, bool) {
	f, ok := p.in.(*os.File)
	if !ok {
		return nil, false
	}
	fd := f.Fd()
	return f, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Println writes a line of guidance above the next question.
func (p *Prompter) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Ask prints "label: " and returns the trimmed answer.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	return p.readLine()
}

// AskSecret is Ask without echo when input is a terminal.
func (p *Prompter) AskSecret(label string) (string, error) {
	f, ok := p.terminal()
	if !ok {
		return p.Ask(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return string(secret), nil
}

// AskUntil repeats the question until valid accepts the answer. Rejections
// are printed before asking again.
func (p *Prompter) AskUntil(label string, valid func(string) error) (string, error) {
	for {
		answer, err := p.Ask(label)
		if err != nil {
			return "", err
		}
		if err := valid(answer); err != nil {
			fmt.Fprintln(p.out, err)
			continue
		}
		return answer, nil
	}
}

// Confirm asks a yes/no question. Only y or yes, in any case, confirms.
func (p *Prompter) Confirm(label string) (bool, error) {
	answer, err := p.Ask(label + " (y/N)")
	if err != nil {
		return false, err
	}
	return yes.MatchString(answer), nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", ErrNoInput
			}
		} else {
			return "", fmt.Errorf("read answer: %w", err)
		}
	}
	return strings.TrimSpace(line), nil
}
