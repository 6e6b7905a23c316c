package catalog

// Ref points at another entity by id. It carries enough to write a stub row
// for the target when the target has never been seen.
type Ref struct {
	Kind        Kind   `json:"kind"`
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	ResourceURI string `json:"resource_uri"`
	StoryType   string `json:"story_type,omitempty"`
}

// CreatorRef is a creator credit. A creator may hold several roles on the
// same owner.
type CreatorRef struct {
	Ref
	Roles []string `json:"roles,omitempty"`
}

// Refs is every outgoing reference extracted from one record.
type Refs struct {
	Images     []Image      `json:"images,omitempty"`
	URLs       []URL        `json:"urls,omitempty"`
	Series     []Ref        `json:"series,omitempty"`
	Events     []Ref        `json:"events,omitempty"`
	Stories    []Ref        `json:"stories,omitempty"`
	Characters []Ref        `json:"characters,omitempty"`
	Creators   []CreatorRef `json:"creators,omitempty"`
	Variants   []Ref        `json:"variants,omitempty"`
	Issues     []Ref        `json:"issues,omitempty"`
}

// AddCreator records a credit, merging roles for a creator already present.
func (r *Refs) AddCreator(ref Ref, role string) {
	for i := range r.Creators {
		if r.Creators[i].ID != ref.ID {
			continue
		}
		if role == "" {
			return
		}
		for _, have := range r.Creators[i].Roles {
			if have == role {
				return
			}
		}
		r.Creators[i].Roles = append(r.Creators[i].Roles, role)
		return
	}
	cr := CreatorRef{Ref: ref}
	if role != "" {
		cr.Roles = []string{role}
	}
	r.Creators = append(r.Creators, cr)
}

// Len is the number of references held.
func (r *Refs) Len() int {
	return len(r.Images) + len(r.URLs) + len(r.Series) + len(r.Events) +
		len(r.Stories) + len(r.Characters) + len(r.Creators) + len(r.Variants) + len(r.Issues)
}
