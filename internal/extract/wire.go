package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The wire types mirror the provider's JSON. Fields not listed are ignored.

type wireImage struct {
	Path      string `json:"path"`
	Extension string `json:"extension"`
}

type wireURL struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type wireSummary struct {
	ResourceURI string `json:"resourceURI"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Role        string `json:"role"`
}

type wireList struct {
	Available int           `json:"available"`
	Items     []wireSummary `json:"items"`
}

type wireCommon struct {
	ID          flexInt    `json:"id"`
	ResourceURI string     `json:"resourceURI"`
	Modified    string     `json:"modified"`
	Description text       `json:"description"`
	Thumbnail   *wireImage `json:"thumbnail"`
	URLs        []wireURL  `json:"urls"`
}

type wireTextObject struct {
	Type     string `json:"type"`
	Language string `json:"language"`
	Text     text   `json:"text"`
}

type wireDate struct {
	Type string `json:"type"`
	Date string `json:"date"`
}

type wirePrice struct {
	Type  string    `json:"type"`
	Price flexFloat `json:"price"`
}

type wireIssue struct {
	wireCommon
	DigitalID          flexInt          `json:"digitalId"`
	Title              text             `json:"title"`
	IssueNumber        flexFloat        `json:"issueNumber"`
	VariantDescription text             `json:"variantDescription"`
	ISBN               string           `json:"isbn"`
	UPC                string           `json:"upc"`
	DiamondCode        string           `json:"diamondCode"`
	EAN                string           `json:"ean"`
	ISSN               string           `json:"issn"`
	Format             string           `json:"format"`
	PageCount          flexInt          `json:"pageCount"`
	TextObjects        []wireTextObject `json:"textObjects"`
	Series             *wireSummary     `json:"series"`
	Variants           []wireSummary    `json:"variants"`
	Dates              []wireDate       `json:"dates"`
	Prices             []wirePrice      `json:"prices"`
	Images             []wireImage      `json:"images"`
	Creators           wireList         `json:"creators"`
	Characters         wireList         `json:"characters"`
	Stories            wireList         `json:"stories"`
	Events             wireList         `json:"events"`
}

type wireSeries struct {
	wireCommon
	Title      text         `json:"title"`
	StartYear  flexInt      `json:"startYear"`
	EndYear    flexInt      `json:"endYear"`
	Rating     string       `json:"rating"`
	Type       string       `json:"type"`
	Next       *wireSummary `json:"next"`
	Previous   *wireSummary `json:"previous"`
	Creators   wireList     `json:"creators"`
	Characters wireList     `json:"characters"`
	Stories    wireList     `json:"stories"`
	Comics     wireList     `json:"comics"`
	Events     wireList     `json:"events"`
}

type wireEvent struct {
	wireCommon
	Title      text         `json:"title"`
	Start      string       `json:"start"`
	End        string       `json:"end"`
	Next       *wireSummary `json:"next"`
	Previous   *wireSummary `json:"previous"`
	Creators   wireList     `json:"creators"`
	Characters wireList     `json:"characters"`
	Stories    wireList     `json:"stories"`
	Comics     wireList     `json:"comics"`
	Series     wireList     `json:"series"`
}

type wireStory struct {
	wireCommon
	Title         text         `json:"title"`
	Type          string       `json:"type"`
	OriginalIssue *wireSummary `json:"originalIssue"`
	Creators      wireList     `json:"creators"`
	Characters    wireList     `json:"characters"`
	Series        wireList     `json:"series"`
	Comics        wireList     `json:"comics"`
	Events        wireList     `json:"events"`
}

type wireCharacter struct {
	wireCommon
	Name    text     `json:"name"`
	Comics  wireList `json:"comics"`
	Series  wireList `json:"series"`
	Stories wireList `json:"stories"`
	Events  wireList `json:"events"`
}

type wireCreator struct {
	wireCommon
	FirstName  string   `json:"firstName"`
	MiddleName string   `json:"middleName"`
	LastName   string   `json:"lastName"`
	Suffix     string   `json:"suffix"`
	FullName   text     `json:"fullName"`
	Comics     wireList `json:"comics"`
	Series     wireList `json:"series"`
	Stories    wireList `json:"stories"`
	Events     wireList `json:"events"`
}

// text accepts a JSON string, null, or an array of byte values and holds
// the raw decoded string.
type text struct {
	s   string
	set bool
}

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = text{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var ints []int
		if err := json.Unmarshal(data, &ints); err != nil {
			return fmt.Errorf("decode byte text: %w", err)
		}
		raw := make([]byte, len(ints))
		for i, b := range ints {
			if b < 0 || b > 255 {
				return fmt.Errorf("decode byte text: value %d out of range", b)
			}
			raw[i] = byte(b)
		}
		*t = text{s: string(raw), set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = text{s: s, set: true}
	return nil
}

// flexInt accepts a JSON number, a numeric string, or null. Zero reads as
// unset since the provider uses 0 for "no value".
type flexInt struct {
	v   int64
	set bool
}

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*n = flexInt{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decode integer %q: %w", s, err)
	}
	*n = flexInt{v: int64(f), set: f != 0}
	return nil
}

func (n flexInt) ptr() *int64 {
	if !n.set {
		return nil
	}
	v := n.v
	return &v
}

// flexFloat accepts a JSON number, a numeric string, or null.
type flexFloat struct {
	v   float64
	set bool
}

func (n *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*n = flexFloat{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decode number %q: %w", s, err)
	}
	*n = flexFloat{v: f, set: true}
	return nil
}

func (n flexFloat) ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.v
	return &v
}
