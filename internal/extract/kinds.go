package extract

import (
	"log/slog"
	"strings"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

func (b *builder) issue(w *wireIssue) (*catalog.Issue, error) {
	common, err := b.common(&w.wireCommon)
	if err != nil {
		return nil, err
	}

	issue := &catalog.Issue{
		Common:             common,
		DigitalID:          w.DigitalID.ptr(),
		Title:              optText(w.Title),
		IssueNumber:        w.IssueNumber.ptr(),
		VariantDescription: optText(w.VariantDescription),
		Identifiers: catalog.Identifiers{
			ISBN:        optString(w.ISBN),
			UPC:         optString(w.UPC),
			DiamondCode: optString(w.DiamondCode),
			EAN:         optString(w.EAN),
			ISSN:        optString(w.ISSN),
		},
		PageCount: w.PageCount.ptr(),
		Format:    optString(w.Format),
	}

	isVariant := issue.VariantDescription != nil || catalog.LooksLikeVariant(w.Title.s)
	issue.IsVariant = &isVariant

	for _, obj := range w.TextObjects {
		body := cleanText(obj.Text.s)
		if body == "" {
			continue
		}
		if issue.TextBlocks == nil {
			issue.TextBlocks = make(map[string][]catalog.TextBlock)
		}
		issue.TextBlocks[obj.Type] = append(issue.TextBlocks[obj.Type], catalog.TextBlock{
			Language: obj.Language,
			Text:     body,
		})
	}

	for _, d := range w.Dates {
		t, ok := parseTime(d.Date)
		if !ok {
			slog.Debug("unparseable issue date", "id", issue.ID, "type", d.Type, "value", d.Date)
		}
		switch d.Type {
		case "onsaleDate":
			issue.Dates.OnSale = t
		case "focDate":
			issue.Dates.FOC = t
		case "unlimitedDate":
			issue.Dates.Unlimited = t
		case "digitalPurchaseDate":
			issue.Dates.DigitalPurchase = t
		default:
			slog.Warn("dropping date of unknown type", "id", issue.ID, "type", d.Type)
		}
	}

	for _, p := range w.Prices {
		switch p.Type {
		case "printPrice":
			issue.Prices.Print = p.Price.ptr()
		case "digitalPurchasePrice":
			issue.Prices.DigitalPurchase = p.Price.ptr()
		default:
			slog.Warn("dropping price of unknown type", "id", issue.ID, "type", p.Type)
		}
	}

	issue.SeriesID = b.one(catalog.KindSeries, w.Series)

	for i := range w.Images {
		if img, ok := image(&w.Images[i]); ok {
			b.image(img)
		}
	}

	b.list(catalog.KindEvent, w.Events)
	b.list(catalog.KindStory, w.Stories)
	b.list(catalog.KindCharacter, w.Characters)
	b.list(catalog.KindCreator, w.Creators)

	for _, s := range w.Stories.Items {
		id, err := catalog.IDFromResourceURI(s.ResourceURI)
		if err != nil {
			continue
		}
		switch s.Type {
		case "cover":
			if issue.CoverStoryID == nil {
				issue.CoverStoryID = &id
			}
		case "interiorStory", "story":
			if issue.InteriorStoryID == nil {
				issue.InteriorStoryID = &id
			}
		}
	}

	seen := map[int64]bool{issue.ID: true}
	for _, v := range w.Variants {
		r, ok := b.ref(catalog.KindIssue, v)
		if !ok || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		b.refs.Variants = append(b.refs.Variants, r)
	}

	return issue, nil
}

func (b *builder) series(w *wireSeries) (*catalog.Series, error) {
	common, err := b.common(&w.wireCommon)
	if err != nil {
		return nil, err
	}

	s := &catalog.Series{
		Common:    common,
		Title:     optText(w.Title),
		StartYear: w.StartYear.ptr(),
		EndYear:   w.EndYear.ptr(),
		Rating:    optString(w.Rating),
		Type:      optString(w.Type),
	}
	s.NextSeriesID = b.one(catalog.KindSeries, w.Next)
	s.PreviousSeriesID = b.one(catalog.KindSeries, w.Previous)

	b.list(catalog.KindEvent, w.Events)
	b.list(catalog.KindStory, w.Stories)
	b.list(catalog.KindCharacter, w.Characters)
	b.list(catalog.KindCreator, w.Creators)
	b.list(catalog.KindIssue, w.Comics)
	return s, nil
}

func (b *builder) event(w *wireEvent) (*catalog.Event, error) {
	common, err := b.common(&w.wireCommon)
	if err != nil {
		return nil, err
	}

	e := &catalog.Event{
		Common: common,
		Title:  optText(w.Title),
	}
	e.Start, _ = parseTime(w.Start)
	e.End, _ = parseTime(w.End)
	e.NextEventID = b.one(catalog.KindEvent, w.Next)
	e.PreviousEventID = b.one(catalog.KindEvent, w.Previous)

	b.list(catalog.KindSeries, w.Series)
	b.list(catalog.KindStory, w.Stories)
	b.list(catalog.KindCharacter, w.Characters)
	b.list(catalog.KindCreator, w.Creators)
	b.list(catalog.KindIssue, w.Comics)
	return e, nil
}

func (b *builder) story(w *wireStory) (*catalog.Story, error) {
	common, err := b.common(&w.wireCommon)
	if err != nil {
		return nil, err
	}

	s := &catalog.Story{
		Common: common,
		Title:  optText(w.Title),
		Type:   optString(w.Type),
	}
	s.OriginalIssueID = b.one(catalog.KindIssue, w.OriginalIssue)

	b.list(catalog.KindSeries, w.Series)
	b.list(catalog.KindEvent, w.Events)
	b.list(catalog.KindCharacter, w.Characters)
	b.list(catalog.KindCreator, w.Creators)
	b.list(catalog.KindIssue, w.Comics)
	return s, nil
}

func (b *builder) character(w *wireCharacter) (*catalog.Character, error) {
	common, err := b.common(&w.wireCommon)
	if err != nil {
		return nil, err
	}

	c := &catalog.Character{
		Common: common,
		Name:   optText(w.Name),
	}

	b.list(catalog.KindSeries, w.Series)
	b.list(catalog.KindEvent, w.Events)
	b.list(catalog.KindStory, w.Stories)
	b.list(catalog.KindIssue, w.Comics)
	return c, nil
}

func (b *builder) creator(w *wireCreator) (*catalog.Creator, error) {
	common, err := b.common(&w.wireCommon)
	if err != nil {
		return nil, err
	}

	c := &catalog.Creator{
		Common:     common,
		FirstName:  optString(w.FirstName),
		MiddleName: optString(w.MiddleName),
		LastName:   optString(w.LastName),
		Suffix:     optString(w.Suffix),
		FullName:   optText(w.FullName),
	}
	if c.FirstName == nil && c.LastName == nil && c.FullName != nil {
		name := catalog.SplitName(*c.FullName)
		c.FirstName = optString(name.First)
		c.MiddleName = optString(name.Middle)
		c.LastName = optString(name.Last)
	}
	if c.FullName == nil {
		parts := make([]string, 0, 3)
		for _, p := range []*string{c.FirstName, c.MiddleName, c.LastName} {
			if p != nil {
				parts = append(parts, *p)
			}
		}
		c.FullName = optString(strings.Join(parts, " "))
	}

	b.list(catalog.KindSeries, w.Series)
	b.list(catalog.KindEvent, w.Events)
	b.list(catalog.KindStory, w.Stories)
	b.list(catalog.KindIssue, w.Comics)
	return c, nil
}
