package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	unlocked bool
	touched  int
	calls    []string
}

func (f *fakeExec) isUnlocked() bool { return f.unlocked }
func (f *fakeExec) touch()           { f.touched++ }
func (f *fakeExec) Unlock(context.Context) error {
	f.calls = append(f.calls, "unlock")
	f.unlocked = true
	return nil
}
func (f *fakeExec) Lock(context.Context) error {
	f.calls = append(f.calls, "lock")
	f.unlocked = false
	return nil
}
func (f *fakeExec) ChangePassword(context.Context) error {
	f.calls = append(f.calls, "passwd")
	return nil
}
func (f *fakeExec) AddNote(context.Context) error { f.calls = append(f.calls, "addnote"); return nil }
func (f *fakeExec) AddFile(_ context.Context, args []string) error {
	f.calls = append(f.calls, "addfile "+strings.Join(args, " "))
	return nil
}
func (f *fakeExec) List(_ context.Context, args []string) error {
	f.calls = append(f.calls, "list "+strings.Join(args, " "))
	return nil
}
func (f *fakeExec) Show(_ context.Context, args []string) error {
	f.calls = append(f.calls, "show "+strings.Join(args, " "))
	return nil
}
func (f *fakeExec) Download(_ context.Context, args []string) error {
	f.calls = append(f.calls, "download "+strings.Join(args, " "))
	return nil
}
func (f *fakeExec) Link(_ context.Context, args []string) error {
	f.calls = append(f.calls, "link "+strings.Join(args, " "))
	return nil
}
func (f *fakeExec) ToggleImportant(_ context.Context, args []string) error {
	f.calls = append(f.calls, "important "+strings.Join(args, " "))
	return nil
}
func (f *fakeExec) Delete(_ context.Context, args []string) error {
	f.calls = append(f.calls, "delete "+strings.Join(args, " "))
	return nil
}
func (f *fakeExec) Status(context.Context) error { f.calls = append(f.calls, "status"); return nil }
func (f *fakeExec) Usage(context.Context) error  { f.calls = append(f.calls, "usage"); return nil }

func silencePrint(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, x := range a {
			if s, ok := x.(string); ok {
				parts = append(parts, s)
			}
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &printed
}

func reader(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	silencePrint(t)

	exec := &fakeExec{unlocked: true}
	runREPL(context.Background(), exec, func() string { return "status" }, reader(
		"help",
		"addnote",
		"addfile /tmp/a b.txt",
		"list file important",
		"l",
		"show 1",
		"download 2",
		"link 2",
		"important 3",
		"rm 4",
		"status",
		"usage",
		"passwd",
		"",
		"foobar",
		"exit",
		"addnote",
	))

	assert.Equal(t, []string{
		"addnote",
		"addfile /tmp/a b.txt",
		"list file important",
		"list ",
		"show 1",
		"download 2",
		"link 2",
		"important 3",
		"delete 4",
		"status",
		"usage",
		"passwd",
	}, exec.calls)
	assert.Equal(t, 13, exec.touched)
}

func TestRunREPL_LockedSessionOnlyAcceptsUnlock(t *testing.T) {
	printed := silencePrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, reader(
		"list",
		"unlock",
		"list",
		"lock",
		"show 1",
		"quit",
	))

	assert.Equal(t, []string{"unlock", "list ", "lock"}, exec.calls)
	assert.Contains(t, *printed, "Vault is locked, type 'unlock'")
	assert.Contains(t, *printed, "Bye!")
}

func TestRunREPL_EndsOnEOFAndCancel(t *testing.T) {
	silencePrint(t)

	exec := &fakeExec{unlocked: true}
	runREPL(context.Background(), exec, func() string { return "s" }, reader("status"))
	assert.Equal(t, []string{"status"}, exec.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec = &fakeExec{unlocked: true}
	runREPL(ctx, exec, func() string { return "s" }, reader("status", "usage"))
	assert.Empty(t, exec.calls)
}
