package services

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// ValidationError is an admission rejection with a user-facing message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

func rejectf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Policy holds the admission ceilings. A zero ceiling or an empty
// allow-list disables that rule.
type Policy struct {
	MaxItems          int
	MaxFileBytes      int64
	MaxNoteChars      int
	AllowedMediaTypes []string
}

// CheckCapacity rejects a new item when count items already exist.
func (p Policy) CheckCapacity(count int) error {
	if p.MaxItems > 0 && count >= p.MaxItems {
		return rejectf("vault is full: %d of %d items", count, p.MaxItems)
	}
	return nil
}

// PrepareNote sanitizes text and checks its length. Control characters
// other than newline and tab are dropped and surrounding space is trimmed.
func (p Policy) PrepareNote(text string) (string, error) {
	clean := strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, text))

	if clean == "" {
		return "", rejectf("note is empty")
	}
	if n := utf8.RuneCountInString(clean); p.MaxNoteChars > 0 && n > p.MaxNoteChars {
		return "", rejectf("note is too long: %d characters, limit is %d", n, p.MaxNoteChars)
	}
	return clean, nil
}

// FileDraft is an upload accepted by PrepareFile.
type FileDraft struct {
	Name      string
	MediaType string
	Data      []byte
}

// PrepareFile reduces name to its base name, detects the media type from
// content when none is given and checks size and type.
func (p Policy) PrepareFile(name, mediaType string, data []byte) (FileDraft, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return FileDraft{}, rejectf("file name %q is not valid", name)
	}

	if size := int64(len(data)); p.MaxFileBytes > 0 && size > p.MaxFileBytes {
		return FileDraft{}, rejectf("file %s is too large: %s, limit is %s",
			base, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(p.MaxFileBytes)))
	}

	mt := normalizeMediaType(mediaType)
	if mt == "" {
		mt = normalizeMediaType(mimetype.Detect(data).String())
	}
	if !p.mediaTypeAllowed(mt) {
		return FileDraft{}, rejectf("file type %s is not allowed", mt)
	}

	if data == nil {
		data = []byte{}
	}
	return FileDraft{Name: base, MediaType: mt, Data: data}, nil
}

func (p Policy) mediaTypeAllowed(mt string) bool {
	if len(p.AllowedMediaTypes) == 0 {
		return true
	}
	for _, allowed := range p.AllowedMediaTypes {
		allowed = normalizeMediaType(allowed)
		if allowed == mt {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok && strings.HasPrefix(mt, prefix+"/") {
			return true
		}
	}
	return false
}

// normalizeMediaType lowercases and drops parameters ("; charset=utf-8").
func normalizeMediaType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
