package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	touch()
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	AddNote(ctx context.Context) error
	AddFile(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Link(ctx context.Context, args []string) error
	ToggleImportant(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Status(ctx context.Context) error
	Usage(ctx context.Context) error
}

// runREPL reads commands line by line from r and dispatches them to a.
//
// While the session is locked only help, unlock and exit are accepted. The
// loop ends on EOF, on "exit"/"quit", when ctx is cancelled, or when an
// unlock attempt fails for good (too many wrong passwords).
//
// Handlers report their own errors to the user, so they are not printed here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("vault %s > ", statusFn()))

		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			if a.isUnlocked() {
				printlnFn("Available commands: addnote, addfile <path>, (l)ist [note|file] [important] [text], " +
					"show <id>, download <id>, link <id>, important <id>, delete <id>, status, usage, passwd, lock, exit")
			} else {
				printlnFn("Available commands: unlock, exit")
			}
			continue
		}

		if !a.isUnlocked() {
			if cmd != "unlock" {
				printlnFn("Vault is locked, type 'unlock'")
				continue
			}
			if err := a.Unlock(ctx); err != nil {
				return
			}
			continue
		}
		a.touch()

		switch cmd {
		case "unlock":
			printlnFn("Already unlocked")
		case "lock":
			_ = a.Lock(ctx)
		case "passwd":
			_ = a.ChangePassword(ctx)
		case "addnote":
			_ = a.AddNote(ctx)
		case "addfile":
			_ = a.AddFile(ctx, args)
		case "l", "list":
			_ = a.List(ctx, args)
		case "show":
			_ = a.Show(ctx, args)
		case "download":
			_ = a.Download(ctx, args)
		case "link":
			_ = a.Link(ctx, args)
		case "important", "star":
			_ = a.ToggleImportant(ctx, args)
		case "delete", "rm":
			_ = a.Delete(ctx, args)
		case "status":
			_ = a.Status(ctx)
		case "usage":
			_ = a.Usage(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
