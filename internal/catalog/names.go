package catalog

import "strings"

// PersonName is a display name split into parts.
type PersonName struct {
	First  string
	Middle string
	Last   string
}

// SplitName splits a display name on whitespace. The first token is the
// first name, the last token the last name, and everything between is
// joined with single spaces into the middle name.
//
//	SplitName("John Middle Q. Public") // {John, "Middle Q.", Public}
//	SplitName("Madonna")               // {Madonna, "", ""}
func SplitName(full string) PersonName {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return PersonName{}
	case 1:
		return PersonName{First: tokens[0]}
	}
	return PersonName{
		First:  tokens[0],
		Middle: strings.Join(tokens[1:len(tokens)-1], " "),
		Last:   tokens[len(tokens)-1],
	}
}
