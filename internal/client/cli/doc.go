// Package cli provides the interactive vault command-line client.
//
// The App gates the session behind the vault password, opens the vault
// (startup reconciliation, push subscription) and runs a REPL over it. An
// idle watcher locks the session after config.SessionTimeout without input.
//
// Commands:
//   - addnote, addfile <path>
//   - list [note|file] [important] [text...]
//   - show <id>, download <id>, link <id>
//   - important <id>, delete <id>
//   - status, usage
//   - lock, unlock, passwd
//   - exit | quit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
