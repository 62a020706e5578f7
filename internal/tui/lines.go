package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"github.com/benbeisheim/chesslink/internal/coordinator"
	"github.com/benbeisheim/chesslink/internal/render"
)

// RunLines is the client for when stdin is not a terminal: each input line
// is one move or command, and every published snapshot is printed as plain
// text. It returns when in is exhausted.
func RunLines(parent context.Context, game Game, in io.Reader, out io.Writer) error {
	printer := &linePrinter{out: out}
	printer.print(game.Snapshot())

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		updates := game.Updates()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-updates:
				printer.print(snap)
			}
		}
	}()

	m := NewModel(game)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := m.run(text); err != nil {
			printer.printf("error: %v\n", err)
		}
	}
	cancel()
	<-done
	if err := scanner.Err(); err != nil {
		return err
	}
	return parent.Err()
}

type linePrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last *coordinator.Snapshot
}

func (p *linePrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// print writes snap unless it shows the same position as the previous one.
func (p *linePrinter) print(snap *coordinator.Snapshot) {
	if snap == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && p.last.State.Placement() == snap.State.Placement() &&
		p.last.State.Turn == snap.State.Turn && p.last.Notice == snap.Notice {
		p.last = snap
		return
	}
	p.last = snap

	fmt.Fprintf(p.out, "%s\n%s\n", ansi.Strip(render.Board(snap.State, render.Options{})), ansi.Strip(render.Status(snap.Status, render.Theme{})))
	if snap.Notice != "" {
		fmt.Fprintln(p.out, snap.Notice)
	}
}
