package mcx

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/goldcurve/internal/contracts"
)

var expiryTagPattern = regexp.MustCompile(`^\d{2}[A-Za-z]{3}\d{4}$`)

// ParseExpiries extracts DDMMMYYYY expiry options from the bhavcopy page, ascending
func ParseExpiries(html string) ([]time.Time, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	seen := make(map[time.Time]bool)
	var out []time.Time

	doc.Find("option").Each(func(i int, opt *goquery.Selection) {
		candidates := []string{strings.TrimSpace(opt.Text())}
		if v, ok := opt.Attr("value"); ok {
			candidates = append(candidates, strings.TrimSpace(v))
		}
		for _, c := range candidates {
			if !expiryTagPattern.MatchString(c) {
				continue
			}
			t, err := time.Parse(contracts.ExpiryLayout, c)
			if err != nil || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// FetchExpiries loads the bhavcopy page and parses its expiry options
func (c *Client) FetchExpiries(ctx context.Context) ([]time.Time, error) {
	html, err := c.fetchPage(ctx)
	if err != nil {
		return nil, err
	}
	expiries, err := ParseExpiries(html)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(expiries)).Info("Discovered MCX expiries")
	return expiries, nil
}
