// Package models defines the vault's single persisted entity, Item, and the
// read-side helpers the presentation layer uses on the authoritative
// collection.
package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Kind discriminates notes from files. It never changes after creation.
type Kind string

const (
	KindNote Kind = "note"
	KindFile Kind = "file"
)

func (k Kind) Valid() bool {
	return k == KindNote || k == KindFile
}

var (
	ErrMissingID      = errors.New("item id is required")
	ErrUnknownKind    = errors.New("unknown item kind")
	ErrPayloadMissing = errors.New("file payload is missing")
	ErrPayloadMixed   = errors.New("file payload has both inline bytes and a remote reference")
)

// Payload holds a file's bytes either inline or as a remote blob reference.
// Item.IsRemote decides which of the two is active.
type Payload struct {
	Inline []byte
	Ref    string
}

// Item is a note or an uploaded file.
type Item struct {
	// ID is the join key across the local and the remote store.
	ID   string
	Kind Kind

	// Content is set for notes only.
	Content string

	// Name, ByteSize and MediaType are set for files only.
	Name      string
	ByteSize  int64
	MediaType string

	Payload     Payload
	IsRemote    bool
	IsImportant bool

	// CreatedAt is the display sort key (newest first).
	CreatedAt time.Time
	// UpdatedAt is stamped by the remote store on every upsert.
	UpdatedAt time.Time
}

// NewNote builds a note item.
func NewNote(id, content string, now time.Time) Item {
	return Item{ID: id, Kind: KindNote, Content: content, CreatedAt: now}
}

// NewFile builds a file item with an inline payload.
func NewFile(id, name, mediaType string, data []byte, now time.Time) Item {
	return Item{
		ID:        id,
		Kind:      KindFile,
		Name:      name,
		ByteSize:  int64(len(data)),
		MediaType: mediaType,
		Payload:   Payload{Inline: data},
		CreatedAt: now,
	}
}

// HasInlinePayload reports whether a file still carries its bytes locally,
// i.e. it has not been promoted to the remote blob store yet.
func (i Item) HasInlinePayload() bool {
	return i.Kind == KindFile && !i.IsRemote
}

// WithRemotePayload returns a copy whose payload is the remote reference ref.
// The inline bytes are dropped so only one representation stays active.
func (i Item) WithRemotePayload(ref string) Item {
	i.Payload = Payload{Ref: ref}
	i.IsRemote = true
	return i
}

// Validate checks the per-kind field presence and the payload invariant.
func (i Item) Validate() error {
	if i.ID == "" {
		return ErrMissingID
	}
	switch i.Kind {
	case KindNote:
		return nil
	case KindFile:
		if i.IsRemote {
			if i.Payload.Ref == "" {
				return fmt.Errorf("%w: %s", ErrPayloadMissing, i.ID)
			}
			if len(i.Payload.Inline) > 0 {
				return fmt.Errorf("%w: %s", ErrPayloadMixed, i.ID)
			}
			return nil
		}
		if i.Payload.Inline == nil {
			return fmt.Errorf("%w: %s", ErrPayloadMissing, i.ID)
		}
		if i.Payload.Ref != "" {
			return fmt.Errorf("%w: %s", ErrPayloadMixed, i.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, i.Kind)
	}
}

// SortByCreatedDesc sorts items newest first, keeping the relative order of
// equal timestamps.
func SortByCreatedDesc(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// IndexOf returns the position of id in items, or -1.
func IndexOf(items []Item, id string) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
}
