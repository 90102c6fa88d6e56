package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

const (
	// LegacyKey holds the flat JSON record list written by the old format.
	LegacyKey = "vault_items"

	legacyCheckedKey = "legacy_import_checked"
)

// LegacyImporter converts the old flat record list into items, once.
type LegacyImporter struct {
	meta metadata.Repository
	log  logging.Logger
	now  func() time.Time
}

func NewLegacyImporter(meta metadata.Repository, log logging.Logger) *LegacyImporter {
	return &LegacyImporter{meta: meta, log: log, now: time.Now}
}

// Pending reports whether an import may still run.
func (l *LegacyImporter) Pending(ctx context.Context) (bool, error) {
	v, err := l.meta.Get(ctx, legacyCheckedKey)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

// Read parses the legacy list. An absent key yields no items; malformed
// entries are skipped and a list that does not parse at all yields none.
func (l *LegacyImporter) Read(ctx context.Context) ([]models.Item, error) {
	raw, err := l.meta.Get(ctx, LegacyKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []models.Item{}, nil
	}
	items := ParseLegacy(raw, l.now())
	l.log.Info(ctx, "legacy records parsed", "accepted", len(items))
	return items, nil
}

// Finish erases the legacy key and records that the import ran.
func (l *LegacyImporter) Finish(ctx context.Context) error {
	if err := l.meta.SetMany(ctx, map[string][]byte{legacyCheckedKey: []byte(l.now().UTC().Format(time.RFC3339))}); err != nil {
		return err
	}
	return l.meta.Delete(ctx, LegacyKey)
}

var errUnsupportedDataURL = errors.New("unsupported data url")

type legacyRecord map[string]any

// ParseLegacy accepts a JSON array of records. A record needs an id
// (string or number) and a string kind, under "kind" or "type".
func ParseLegacy(raw []byte, now time.Time) []models.Item {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return []models.Item{}
	}

	seen := make(map[string]bool, len(records))
	items := make([]models.Item, 0, len(records))
	for _, msg := range records {
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		var rec legacyRecord
		if err := dec.Decode(&rec); err != nil || rec == nil {
			continue
		}
		it, ok := rec.item(now)
		if !ok || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		items = append(items, it)
	}
	models.SortByCreatedDesc(items)
	return items
}

func (r legacyRecord) item(now time.Time) (models.Item, bool) {
	id, ok := r.id()
	if !ok {
		return models.Item{}, false
	}
	kind, ok := r.firstString("kind", "type")
	if !ok {
		return models.Item{}, false
	}

	created := r.time("createdAt", "date", "created")
	if created.IsZero() {
		created = now
	}
	important, _ := r["isImportant"].(bool)
	if v, ok := r["important"].(bool); ok {
		important = important || v
	}

	var it models.Item
	switch models.Kind(kind) {
	case models.KindNote:
		content, ok := r.firstString("content", "text")
		if !ok {
			return models.Item{}, false
		}
		it = models.NewNote(id, content, created)
	case models.KindFile:
		name, ok := r.firstString("name", "fileName")
		if !ok || name == "" {
			return models.Item{}, false
		}
		encoded, ok := r.firstString("data", "payload", "content")
		if !ok {
			return models.Item{}, false
		}
		data, mediaType, err := decodePayload(encoded)
		if err != nil {
			return models.Item{}, false
		}
		if mt, ok := r.firstString("mediaType", "mimeType"); ok && mt != "" {
			mediaType = mt
		}
		it = models.NewFile(id, name, mediaType, data, created)
	default:
		return models.Item{}, false
	}
	it.IsImportant = important
	return it, it.Validate() == nil
}

func (r legacyRecord) id() (string, bool) {
	switch v := r["id"].(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

func (r legacyRecord) firstString(keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := r[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

// time accepts RFC 3339 strings and unix milliseconds.
func (r legacyRecord) time(keys ...string) time.Time {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t.UTC()
			}
		case json.Number:
			if ms, err := v.Int64(); err == nil {
				return time.UnixMilli(ms).UTC()
			}
		}
	}
	return time.Time{}
}

// decodePayload accepts a data URL ("data:image/png;base64,...") or bare
// standard base64.
func decodePayload(s string) ([]byte, string, error) {
	var mediaType string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, "", errUnsupportedDataURL
		}
		mediaType = strings.TrimSuffix(header, ";base64")
		s = body
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", err
	}
	return data, mediaType, nil
}
