package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Category struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// CategoryRef is either a bare category id or an embedded category record,
// depending on whether the backend populated the relation.
type CategoryRef struct {
	id       string
	embedded *Category
}

func Reference(id string) CategoryRef {
	return CategoryRef{id: id}
}

func Embedded(category Category) CategoryRef {
	return CategoryRef{id: category.ID, embedded: &category}
}

func (r CategoryRef) ID() string {
	return r.id
}

func (r CategoryRef) IsZero() bool {
	return r.id == "" && r.embedded == nil
}

func (r CategoryRef) IsEmbedded() bool {
	return r.embedded != nil
}

// Resolve returns the category the reference points at. Embedded records
// resolve to themselves; bare ids are looked up in categories.
func (r CategoryRef) Resolve(categories []Category) (Category, bool) {
	if r.embedded != nil {
		return *r.embedded, true
	}
	if r.id == "" {
		return Category{}, false
	}
	for _, category := range categories {
		if category.ID == r.id {
			return category, true
		}
	}
	return Category{}, false
}

func (r *CategoryRef) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		*r = CategoryRef{}
		return nil
	case raw[0] == '"':
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return fmt.Errorf("failed decoding category id with error=%w", err)
		}
		*r = Reference(id)
		return nil
	case raw[0] == '{':
		category := Category{}
		if err := json.Unmarshal(raw, &category); err != nil {
			return fmt.Errorf("failed decoding category with error=%w", err)
		}
		*r = Embedded(category)
		return nil
	}
	return fmt.Errorf("unexpected category value=%s", string(raw))
}

func (r CategoryRef) MarshalJSON() ([]byte, error) {
	if r.embedded != nil {
		return json.Marshal(r.embedded)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}
