package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/celerix-dev/realtrack/pkg/collection"
	"github.com/mattn/go-isatty"
)

// promptConfirmer asks on out and reads the answer from in. Only "y" and "yes"
// confirm. When in is not a terminal nothing is asked and the action is
// declined.
type promptConfirmer struct {
	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	interactive := true
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &promptConfirmer{in: bufio.NewReader(in), out: out, interactive: interactive}
}

func (p *promptConfirmer) Confirm(ctx context.Context, c collection.Confirmation) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.interactive {
		fmt.Fprintf(p.out, "%s: %s\nNot a terminal; pass --yes to confirm.\n", c.Title, c.Message)
		return false
	}

	fmt.Fprintf(p.out, "%s: %s [y/N] ", c.Title, c.Message)

	answer := make(chan string, 1)
	go func() {
		line, _ := p.in.ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

// textNotifier prints notifications one per line.
type textNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func newTextNotifier(out io.Writer) *textNotifier {
	return &textNotifier{out: out}
}

func (t *textNotifier) Notify(n collection.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := ""
	switch n.Severity {
	case collection.Negative:
		prefix = "ERROR: "
	case collection.Warning:
		prefix = "WARN: "
	}
	fmt.Fprintf(t.out, "%s%s\n", prefix, n.Message)
	if n.Detail != "" {
		fmt.Fprintf(t.out, "  %s\n", n.Detail)
	}
}
