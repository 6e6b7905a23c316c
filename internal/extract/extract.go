// Package extract maps provider records onto the catalog model.
//
// Extraction is a pure function of the record: it performs no I/O and
// returns the subject entity together with every outgoing reference. A
// reference whose resource URI does not end in a numeric id is dropped and
// reported in Extraction.Dropped; the rest of the record is still used.
package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// Extraction is the typed form of one provider record.
type Extraction struct {
	Entity  catalog.Entity `json:"-"`
	Refs    catalog.Refs   `json:"refs"`
	Dropped []error        `json:"-"`
}

// Extract decodes raw as a record of the given kind.
func Extract(kind catalog.Kind, raw json.RawMessage) (*Extraction, error) {
	b := &builder{subject: kind, seen: make(map[catalog.Kind]map[int64]bool)}

	var (
		entity catalog.Entity
		err    error
	)
	switch kind {
	case catalog.KindIssue:
		var w wireIssue
		if err = decode(raw, &w); err == nil {
			entity, err = b.issue(&w)
		}
	case catalog.KindSeries:
		var w wireSeries
		if err = decode(raw, &w); err == nil {
			entity, err = b.series(&w)
		}
	case catalog.KindEvent:
		var w wireEvent
		if err = decode(raw, &w); err == nil {
			entity, err = b.event(&w)
		}
	case catalog.KindStory:
		var w wireStory
		if err = decode(raw, &w); err == nil {
			entity, err = b.story(&w)
		}
	case catalog.KindCharacter:
		var w wireCharacter
		if err = decode(raw, &w); err == nil {
			entity, err = b.character(&w)
		}
	case catalog.KindCreator:
		var w wireCreator
		if err = decode(raw, &w); err == nil {
			entity, err = b.creator(&w)
		}
	default:
		return nil, fmt.Errorf("extract: unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", kind, err)
	}

	return &Extraction{Entity: entity, Refs: b.refs, Dropped: b.dropped}, nil
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// builder accumulates references while one record is mapped.
type builder struct {
	subject catalog.Kind
	id      int64
	refs    catalog.Refs
	dropped []error
	seen    map[catalog.Kind]map[int64]bool
}

func (b *builder) drop(err error) {
	slog.Warn("dropping reference", "subject", b.subject, "id", b.id, "error", err)
	b.dropped = append(b.dropped, err)
}

func (b *builder) common(w *wireCommon) (catalog.Common, error) {
	id := w.ID.v
	if !w.ID.set {
		var err error
		if id, err = catalog.IDFromResourceURI(w.ResourceURI); err != nil {
			return catalog.Common{}, err
		}
	}
	b.id = id

	c := catalog.Common{
		ID:          id,
		ResourceURI: w.ResourceURI,
		Description: optText(w.Description),
	}

	if t, ok := parseTime(w.Modified); ok {
		c.Modified = t
	} else {
		slog.Debug("unparseable modified timestamp", "subject", b.subject, "id", id, "value", w.Modified)
	}

	if img, ok := image(w.Thumbnail); ok {
		c.Thumbnail = &img
		b.image(img)
	}

	for _, u := range w.URLs {
		t := catalog.URLType(u.Type)
		if !t.Valid() {
			slog.Warn("dropping url of unknown type", "subject", b.subject, "id", id, "type", u.Type)
			continue
		}
		if strings.TrimSpace(u.URL) == "" {
			continue
		}
		url := catalog.URL{Type: t, URL: u.URL}
		c.URLs = append(c.URLs, url)
		b.refs.URLs = append(b.refs.URLs, url)
	}

	return c, nil
}

func image(w *wireImage) (catalog.Image, bool) {
	if w == nil || strings.TrimSpace(w.Path) == "" {
		return catalog.Image{}, false
	}
	ext := w.Extension
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return catalog.Image{Path: w.Path, Extension: ext}, true
}

func (b *builder) image(img catalog.Image) {
	for _, have := range b.refs.Images {
		if have.Path == img.Path {
			return
		}
	}
	b.refs.Images = append(b.refs.Images, img)
}

// ref resolves a summary into a reference, or drops it.
func (b *builder) ref(kind catalog.Kind, s wireSummary) (catalog.Ref, bool) {
	id, err := catalog.IDFromResourceURI(s.ResourceURI)
	if err != nil {
		b.drop(err)
		return catalog.Ref{}, false
	}
	r := catalog.Ref{Kind: kind, ID: id, Name: cleanText(s.Name), ResourceURI: s.ResourceURI}
	if kind == catalog.KindStory {
		r.StoryType = s.Type
	}
	return r, true
}

// add appends r to the slot for its kind unless already present.
func (b *builder) add(r catalog.Ref) {
	if b.seen[r.Kind] == nil {
		b.seen[r.Kind] = make(map[int64]bool)
	}
	if b.seen[r.Kind][r.ID] {
		return
	}
	b.seen[r.Kind][r.ID] = true

	switch r.Kind {
	case catalog.KindSeries:
		b.refs.Series = append(b.refs.Series, r)
	case catalog.KindEvent:
		b.refs.Events = append(b.refs.Events, r)
	case catalog.KindStory:
		b.refs.Stories = append(b.refs.Stories, r)
	case catalog.KindCharacter:
		b.refs.Characters = append(b.refs.Characters, r)
	case catalog.KindIssue:
		b.refs.Issues = append(b.refs.Issues, r)
	}
}

// one resolves a single optional summary, adds it and returns its id.
func (b *builder) one(kind catalog.Kind, s *wireSummary) *int64 {
	if s == nil || s.ResourceURI == "" {
		return nil
	}
	r, ok := b.ref(kind, *s)
	if !ok {
		return nil
	}
	b.add(r)
	id := r.ID
	return &id
}

func (b *builder) list(kind catalog.Kind, l wireList) {
	for _, item := range l.Items {
		if kind == b.subject {
			// A record never lists itself as its own neighbour.
			if id, err := catalog.IDFromResourceURI(item.ResourceURI); err == nil && id == b.id {
				continue
			}
		}
		r, ok := b.ref(kind, item)
		if !ok {
			continue
		}
		if kind == catalog.KindCreator {
			b.refs.AddCreator(r, strings.TrimSpace(item.Role))
			continue
		}
		b.add(r)
	}
}
