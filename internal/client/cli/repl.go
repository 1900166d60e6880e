package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Toggle(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
	Reload(ctx context.Context) error
	Theme(ctx context.Context, args []string) error
	Admin(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: register, login, theme, help, exit"
	helpUser      = "Available commands: list [all|pending|completed], add, edit <id>, toggle <id>, delete <id>, stats, reload, theme [light|dark|system|cycle], whoami, logout, help, exit"
	helpAdmin     = "Admin: admin [overview|users|tasks] [-s term] [-f all|pending|completed]"
)

// runREPL starts a simple read-eval-print loop for the taskdesk CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on a. Errors returned by handlers are rendered with
// describeError. The loop exits on EOF, when ctx is done, or when the user
// types "exit" or "quit". Pass in over a cancelReader so a pending read
// also ends with ctx.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(out, "taskdesk %s> ", statusFn())
		line, err := in.ReadString('\n')
		if ctx.Err() != nil {
			fmt.Fprintln(out)
			return
		}
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			switch {
			case a.isAdmin():
				fmt.Fprintln(out, helpUser)
				fmt.Fprintln(out, helpAdmin)
			case a.isLoggedIn():
				fmt.Fprintln(out, helpUser)
			default:
				fmt.Fprintln(out, helpAnonymous)
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "add":
			cmdErr = a.Add(ctx)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "toggle", "done":
			cmdErr = a.Toggle(ctx, args)
		case "delete", "rm":
			cmdErr = a.Delete(ctx, args)
		case "stats":
			cmdErr = a.Stats(ctx)
		case "reload":
			cmdErr = a.Reload(ctx)

		case "theme":
			cmdErr = a.Theme(ctx, args)
		case "admin":
			cmdErr = a.Admin(ctx, args)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if msg := describeError(cmdErr); msg != "" {
			fmt.Fprintln(out, msg)
		}
	}
}

// cancelReader ends a blocked Read once ctx is done. Each Read runs the
// source read on its own goroutine; after cancellation that goroutine stays
// parked on the source until it returns, and no further reads are issued.
type cancelReader struct {
	ctx context.Context
	src io.Reader
}

func newCancelReader(ctx context.Context, src io.Reader) io.Reader {
	return &cancelReader{ctx: ctx, src: src}
}

type readResult struct {
	n   int
	err error
}

func (r *cancelReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	buf := make([]byte, len(p))
	done := make(chan readResult, 1)
	go func() {
		n, err := r.src.Read(buf)
		done <- readResult{n: n, err: err}
	}()

	select {
	case res := <-done:
		return copy(p, buf[:res.n]), res.err
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	}
}
