package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.miragespace.co/ringstore/router"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

type repl struct {
	router *router.Router
	in     io.Reader
	out    io.Writer
}

var (
	errPrint = color.New(color.FgRed).FprintfFunc()
	okPrint  = color.New(color.FgGreen).FprintfFunc()
)

func (r *repl) Run(ctx context.Context) error {
	sc := bufio.NewScanner(r.in)
	fmt.Fprintln(r.out, "commands: ADD host:port | REMOVE host:port | SET key value | GET key | DEL key | STATS | EXIT")

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !r.dispatch(ctx, line) {
			return nil
		}
	}
	return sc.Err()
}

// dispatch runs one command line, reporting false when the session ends.
func (r *repl) dispatch(ctx context.Context, line string) bool {
	parts := strings.SplitN(line, " ", 2)
	verb := strings.ToUpper(parts[0])
	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}

	switch verb {
	case "EXIT":
		return false

	case "ADD":
		if rest == "" {
			errPrint(r.out, "usage: ADD host:port\n")
			return true
		}
		report, err := r.router.AddNode(ctx, rest)
		if err != nil {
			errPrint(r.out, "%v\n", err)
			return true
		}
		okPrint(r.out, "added; moved=%d duplicated=%d failed=%d\n",
			report.Moved, report.Duplicated, report.Failed)

	case "REMOVE":
		if rest == "" {
			errPrint(r.out, "usage: REMOVE host:port\n")
			return true
		}
		report, err := r.router.RemoveNode(ctx, rest)
		if err != nil {
			errPrint(r.out, "%v\n", err)
			return true
		}
		okPrint(r.out, "removed; moved=%d duplicated=%d failed=%d\n",
			report.Moved, report.Duplicated, report.Failed)

	case "SET":
		kv := strings.SplitN(rest, " ", 2)
		if len(kv) != 2 {
			errPrint(r.out, "usage: SET key value\n")
			return true
		}
		target, err := r.handleErr(r.router.Set(ctx, kv[0], kv[1]))
		if err != nil {
			return true
		}
		okPrint(r.out, "OK (%s)\n", target)

	case "GET":
		if rest == "" {
			errPrint(r.out, "usage: GET key\n")
			return true
		}
		value, target, err := r.router.Get(ctx, rest)
		switch {
		case errors.Is(err, router.ErrNoNodes):
			errPrint(r.out, "no servers\n")
		case errors.Is(err, router.ErrKeyNotFound):
			errPrint(r.out, "not found\n")
		case err != nil:
			errPrint(r.out, "%v\n", err)
		default:
			fmt.Fprintf(r.out, "=%s (%s)\n", value, target)
		}

	case "DEL":
		if rest == "" {
			errPrint(r.out, "usage: DEL key\n")
			return true
		}
		target, err := r.handleErr(r.router.Delete(ctx, rest))
		if err != nil {
			return true
		}
		okPrint(r.out, "OK (%s)\n", target)

	case "STATS":
		r.printStats(ctx)

	default:
		errPrint(r.out, "unknown command %q\n", verb)
	}
	return true
}

func (r *repl) handleErr(target string, err error) (string, error) {
	switch {
	case errors.Is(err, router.ErrNoNodes):
		errPrint(r.out, "no servers\n")
	case err != nil:
		errPrint(r.out, "%v\n", err)
	}
	return target, err
}

func (r *repl) printStats(ctx context.Context) {
	stats := r.router.Stats(ctx)
	if len(stats) == 0 {
		errPrint(r.out, "no servers\n")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(table.Row{"Node", "Keys"})
	for _, s := range stats {
		if !s.Reachable {
			t.AppendRow(table.Row{s.Addr, "unreachable"})
			continue
		}
		t.AppendRow(table.Row{s.Addr, s.Keys})
	}
	t.Render()
}
