// Package scraper recovers a currency rate from the provider's HTML page.
//
// There is no contract with the provider's markup, so extraction is a
// best-effort chain of strategies tried in priority order. The first
// strategy that yields a plausible value wins.
package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Plausible rates lie strictly inside (MinRate, MaxRate). Dates, percentages
// and volumes on the page usually fall outside it.
const (
	MinRate = 1.0
	MaxRate = 1000.0
)

var decimalPattern = regexp.MustCompile(`\d+\.\d+`)

var log = logrus.WithField("component", "scraper")

// Strategy is one extraction attempt over a parsed page.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) (float64, bool)
}

// Match is a successful extraction.
type Match struct {
	Price    float64
	Strategy string
}

// Chain tries strategies in order.
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// DefaultChain mirrors the provider's known layouts, most specific first,
// then falls back to any div whose class mentions "rate".
func DefaultChain() *Chain {
	return NewChain(
		SelectorStrategy("div[data-currency]"),
		SelectorStrategy("span.mfm-black-btn"),
		SelectorStrategy("div.mfm-posr"),
		SelectorStrategy("div.sc-1x32wa2-9"),
		SelectorStrategy("table tr td"),
		RateClassStrategy(),
	)
}

func (c *Chain) Strategies() []string {
	out := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		out[i] = s.Name
	}
	return out
}

// Extract parses page once and runs the chain. ok is false when no strategy
// produced a plausible value; that is not an error.
func (c *Chain) Extract(page string) (Match, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		log.Debugf("parse page: %v", err)
		return Match{}, false
	}
	for _, s := range c.strategies {
		if price, ok := s.Extract(doc); ok {
			return Match{Price: price, Strategy: s.Name}, true
		}
	}
	return Match{}, false
}

// SelectorStrategy scans elements matching selector and takes the first
// decimal number (comma treated as dot) of each element's text.
func SelectorStrategy(selector string) Strategy {
	return Strategy{
		Name: selector,
		Extract: func(doc *goquery.Document) (float64, bool) {
			var found float64
			var ok bool
			doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				found, ok = FirstDecimal(sel.Text())
				return !ok
			})
			return found, ok
		},
	}
}

// RateClassStrategy parses the whole trimmed text of any div whose class
// attribute contains "rate".
func RateClassStrategy() Strategy {
	return Strategy{
		Name: "div[class*=rate]",
		Extract: func(doc *goquery.Document) (float64, bool) {
			var found float64
			var ok bool
			doc.Find("div[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				class, _ := sel.Attr("class")
				if !strings.Contains(strings.ToLower(class), "rate") {
					return true
				}
				found, ok = ParseWhole(sel.Text())
				return !ok
			})
			return found, ok
		},
	}
}

// FirstDecimal returns the first decimal number in text if it is plausible.
func FirstDecimal(text string) (float64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	m := decimalPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || !Plausible(v) {
		return 0, false
	}
	return v, true
}

// ParseWhole parses the entire trimmed text as a number if it is plausible.
func ParseWhole(text string) (float64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || !Plausible(v) {
		return 0, false
	}
	return v, true
}

func Plausible(v float64) bool {
	return v > MinRate && v < MaxRate
}
