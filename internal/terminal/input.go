package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Test seams for the password prompt.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

type fileDescriptor interface {
	Fd() uintptr
}

// terminalFD returns the descriptor of in when in is a terminal, or -1.
func terminalFD(in io.Reader) int {
	file, ok := in.(fileDescriptor)
	if !ok {
		return -1
	}
	fd := int(file.Fd())
	if !isTerminal(fd) {
		return -1
	}

	return fd
}

type lineResult struct {
	line string
	err  error
}

// readLine returns the next input line without the line break. A read that is
// interrupted by ctx stays pending and is picked up by the next call, so the
// input is never read by two goroutines at once.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if t.pending == nil {
		pending := make(chan lineResult, 1)
		go func() {
			line, err := t.in.ReadString('\n')
			pending <- lineResult{line: line, err: err}
		}()
		t.pending = pending
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-t.pending:
		t.pending = nil
		if result.err != nil {
			if errors.Is(result.err, io.EOF) && len(result.line) > 0 {
				return strings.TrimRight(result.line, "\r\n"), nil
			}
			return "", result.err
		}
		return strings.TrimRight(result.line, "\r\n"), nil
	}
}

// ask prints prompt and reads the answer, trimmed.
func (t *Terminal) ask(ctx context.Context, prompt string) (string, error) {
	t.printf("%s: ", prompt)
	answer, err := t.readLine(ctx)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

// askWithDefault is ask that keeps current when the answer is empty.
func (t *Terminal) askWithDefault(ctx context.Context, prompt, current string) (string, error) {
	answer, err := t.ask(ctx, fmt.Sprintf("%s [%s]", prompt, current))
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}

	return answer, nil
}

// askPassword reads a password without echo when the input is a terminal and
// as a plain line otherwise.
func (t *Terminal) askPassword(ctx context.Context, prompt string) (string, error) {
	t.printf("%s: ", prompt)
	if t.pending != nil || t.passwordFD < 0 {
		return t.readLine(ctx)
	}

	password, err := readPassword(t.passwordFD)
	t.printf("\n")
	if err != nil {
		return "", fmt.Errorf("in internal/terminal/input.go/askPassword(): error while `readPassword()` calling: %w", err)
	}

	return string(password), nil
}
