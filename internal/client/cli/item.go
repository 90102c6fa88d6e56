package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dustin/go-humanize"
)

var errUsage = errors.New("usage")

// usage prints the expected form of a command and returns errUsage.
func (a *App) usage(form string) error {
	fmt.Fprintln(a.out, "Usage:", form)
	return errUsage
}

// AddNote reads a multi-line note body and adds it to the vault.
func (a *App) AddNote(ctx context.Context) error {
	text, err := GetMultiline(a.reader, "Enter note text (double Enter to finish):", a.out)
	if err != nil {
		return err
	}
	it, err := a.vault.AddNote(ctx, text)
	if err != nil {
		return a.report(ctx, "add note", err)
	}
	fmt.Fprintln(a.out, "Added", it.ID)
	return nil
}

// AddFile reads the file at args[0] and adds it to the vault. The media
// type is detected from the content.
func (a *App) AddFile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("addfile <path>")
	}
	path := strings.Join(args, " ")

	data, err := os.ReadFile(path)
	if err != nil {
		return a.report(ctx, "read file", err)
	}

	it, err := a.vault.AddFile(ctx, filepath.Base(path), "", data)
	if err != nil {
		return a.report(ctx, "add file", err)
	}
	fmt.Fprintf(a.out, "Added %s (%s, %s)\n", it.ID, it.MediaType, humanize.IBytes(uint64(it.ByteSize)))
	return nil
}

// parseFilter turns "list" arguments into a models.Filter. The words note,
// file and important are switches; everything else is the search text.
func parseFilter(args []string) models.Filter {
	var (
		f     models.Filter
		query []string
	)
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "note", "notes":
			f.Kind = models.KindNote
		case "file", "files":
			f.Kind = models.KindFile
		case "important", "!":
			f.ImportantOnly = true
		default:
			query = append(query, arg)
		}
	}
	f.Query = strings.Join(query, " ")
	return f
}

// List prints one line per item matching the filter, newest first.
func (a *App) List(_ context.Context, args []string) error {
	list := a.vault.Find(parseFilter(args))
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No items")
		return nil
	}
	for _, it := range list {
		fmt.Fprintln(a.out, summary(it))
	}
	return nil
}

func summary(it models.Item) string {
	mark := " "
	if it.IsImportant {
		mark = "*"
	}
	when := humanize.Time(it.CreatedAt)

	switch it.Kind {
	case models.KindFile:
		where := "local"
		if it.IsRemote {
			where = "remote"
		}
		return fmt.Sprintf("%s %s  file  %s (%s, %s, %s)  %s",
			mark, it.ID, it.Name, it.MediaType, humanize.IBytes(uint64(it.ByteSize)), where, when)
	default:
		return fmt.Sprintf("%s %s  note  %s  %s", mark, it.ID, preview(it.Content, 48), when)
	}
}

// preview returns the first line of s, cut to n runes.
func preview(s string, n int) string {
	line, _, cut := strings.Cut(s, "\n")
	r := []rune(line)
	if len(r) > n {
		return string(r[:n]) + "…"
	}
	if cut {
		return line + "…"
	}
	return line
}

// Show prints a single item. Note bodies are printed in full.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("show <id>")
	}
	it, err := a.vault.Get(args[0])
	if err != nil {
		return a.report(ctx, "show", err)
	}

	fmt.Fprintln(a.out, summary(it))
	fmt.Fprintf(a.out, "Created: %s\n", it.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if it.Kind == models.KindNote {
		fmt.Fprintln(a.out, it.Content)
	}
	return nil
}

// Download writes a file item's payload into the download directory. An
// existing file is never overwritten.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("download <id>")
	}
	it, data, err := a.vault.Payload(ctx, args[0])
	if err != nil {
		return a.report(ctx, "download", err)
	}

	dir, err := filex.EnsureDir("", a.config.DownloadDir)
	if err != nil {
		return a.report(ctx, "download", err)
	}
	out := filex.FreePath(dir, it.Name)
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return a.report(ctx, "download", err)
	}
	fmt.Fprintln(a.out, "File saved to:", out)
	return nil
}

// Link prints a time-limited download URL for a remote file.
func (a *App) Link(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("link <id>")
	}
	url, err := a.vault.PayloadURL(ctx, args[0])
	if err != nil {
		return a.report(ctx, "link", err)
	}
	fmt.Fprintln(a.out, url)
	return nil
}

func (a *App) ToggleImportant(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("important <id>")
	}
	it, err := a.vault.ToggleImportant(ctx, args[0])
	if err != nil {
		return a.report(ctx, "toggle important", err)
	}
	if it.IsImportant {
		fmt.Fprintln(a.out, "Marked", it.ID, "as important")
	} else {
		fmt.Fprintln(a.out, "Unmarked", it.ID)
	}
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("delete <id>")
	}
	it, err := a.vault.Get(args[0])
	if err != nil {
		return a.report(ctx, "delete", err)
	}
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete %s %s?", it.Kind, it.ID), a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.vault.Delete(ctx, args[0]); err != nil {
		return a.report(ctx, "delete", err)
	}
	fmt.Fprintln(a.out, "Deleted", args[0])
	return nil
}

func (a *App) Status(_ context.Context) error {
	fmt.Fprintln(a.out, "Sync:", a.vault.Status())
	return nil
}

// Usage prints the storage report.
func (a *App) Usage(_ context.Context) error {
	u := a.vault.Usage()
	line := fmt.Sprintf("%d items, %s", u.Items, humanize.IBytes(uint64(u.Bytes)))
	if u.QuotaBytes > 0 {
		line += fmt.Sprintf(" of %s (%.1f%%)", humanize.IBytes(uint64(u.QuotaBytes)), u.Percent())
	}
	fmt.Fprintln(a.out, line)
	return nil
}
