package catalog

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PurchaseFormat is how a copy of an issue was bought.
type PurchaseFormat string

const (
	FormatPhysical PurchaseFormat = "physical"
	FormatDigital  PurchaseFormat = "digital"
)

var (
	fold  = cases.Fold()
	title = cases.Title(language.English)
)

// ParsePurchaseFormat matches s against the known formats ignoring case.
func ParsePurchaseFormat(s string) (PurchaseFormat, error) {
	switch PurchaseFormat(fold.String(s)) {
	case FormatPhysical:
		return FormatPhysical, nil
	case FormatDigital:
		return FormatDigital, nil
	}
	return "", fmt.Errorf("unknown purchase format %q: must be physical or digital", s)
}

// Label is the format for display, e.g. "Physical".
func (f PurchaseFormat) Label() string { return title.String(string(f)) }

// Purchase records that the collector owns a copy of an issue.
type Purchase struct {
	Date   *time.Time
	Price  *float64
	Format PurchaseFormat
}

// DefaultPurchase derives a purchase from the issue's own release data: the
// on-sale date and print price for physical copies, the digital purchase
// date and price for digital ones. Either field may stay nil.
func DefaultPurchase(issue *Issue, format PurchaseFormat) *Purchase {
	p := &Purchase{Format: format}
	switch format {
	case FormatDigital:
		p.Date = issue.Dates.DigitalPurchase
		p.Price = issue.Prices.DigitalPurchase
	default:
		p.Date = issue.Dates.OnSale
		p.Price = issue.Prices.Print
	}
	return p
}
