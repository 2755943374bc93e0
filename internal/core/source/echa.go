package source

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/hazard"
	"github.com/agritox/agritox/internal/core/markup"
)

// ECHASource is the source id of the ECHA C&L inventory adapter.
const ECHASource = "echa"

const (
	echaDefaultBase = "https://echa.europa.eu/information-on-chemicals/cl-inventory-database"
	echaDetailPath  = "/discli/details/"
)

var (
	echaECLabel  = regexp.MustCompile(`^ec\b`)
	echaCASLabel = regexp.MustCompile(`^cas\b`)
)

// ECHAAdapter scrapes classification and labelling data from the ECHA
// C&L inventory.
type ECHAAdapter struct {
	Base
}

// ID returns the source id.
func (a *ECHAAdapter) ID() string { return ECHASource }

// Role returns the contribution of this source.
func (a *ECHAAdapter) Role() core.SourceRole { return core.SourceRoleRegulatory }

// Fetch searches the inventory and parses the first matching detail page.
func (a *ECHAAdapter) Fetch(ctx context.Context, name string) *core.SourceRecord {
	return a.run(ctx, ECHASource, core.SourceRoleRegulatory, name, a.fetch)
}

// Probe checks that the inventory search page answers.
func (a *ECHAAdapter) Probe(ctx context.Context) ProbeResult {
	return a.probe(ctx, ECHASource, a.searchURL("water").String())
}

func (a *ECHAAdapter) fetch(ctx context.Context, name string) (*core.SourceRecord, string, error) {
	req := a.requester()
	accept := HTMLAccept()

	search := a.searchURL(name)
	resp, err := req.Get(ctx, "echa search", search, accept)
	if err != nil {
		return nil, search.String(), err
	}
	if !resp.Success() {
		return nil, search.String(), core.StatusError("echa search", resp.StatusCode)
	}

	record := core.NewSourceRecord(ECHASource, core.SourceRoleRegulatory)

	doc, err := markup.Parse(resp.Body)
	if err != nil {
		return nil, search.String(), core.ParseError("echa search", err)
	}
	href := findDetailLink(doc)
	if href == "" {
		record.SetNote("no C&L inventory entry found")
		return record, search.String(), nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, search.String(), core.ParseError("echa detail link", err)
	}
	detail := resp.URL.ResolveReference(ref)

	resp, err = req.Get(ctx, "echa detail", detail, accept)
	if err != nil {
		return nil, detail.String(), err
	}
	if !resp.Success() {
		return nil, detail.String(), core.StatusError("echa detail", resp.StatusCode)
	}

	page, err := markup.Parse(resp.Body)
	if err != nil {
		return nil, detail.String(), core.ParseError("echa detail", err)
	}

	if !applyECHARows(record, labelledRows(page)) {
		record.SetNote("detail page had no recognizable classification rows")
	}
	return record, detail.String(), nil
}

func (a *ECHAAdapter) searchURL(name string) *url.URL {
	out := *ParseBase(a.BaseURL, echaDefaultBase)
	query := out.Query()
	query.Set("searchCriteria", name)
	out.RawQuery = query.Encode()
	return &out
}

type labelledRow struct {
	label string
	value string
}

// applyECHARows maps labelled rows onto the record and reports whether any
// row was recognized.
func applyECHARows(record *core.SourceRecord, rows []labelledRow) bool {
	recognized := false
	for _, row := range rows {
		label := strings.ToLower(row.label)
		value := row.value
		switch {
		case strings.Contains(label, "hazard statement"):
			record.HazardCodes.Add(hazard.ExtractHazardCodes(value)...)
			recognized = true
		case strings.Contains(label, "precautionary statement"):
			record.PrecautionaryCodes.Add(hazard.ExtractPrecautionaryCodes(value)...)
			recognized = true
		case strings.Contains(label, "use") || strings.Contains(label, "application"):
			if record.RecommendedUse == nil && value != "" {
				record.RecommendedUse = core.StringPtr(value)
				recognized = true
			}
		case strings.Contains(label, "trade name") || strings.Contains(label, "product name"):
			setIfAbsent(record, "product_name", value)
			recognized = true
		case substanceLabel(label):
			setIfAbsent(record, "active_ingredient", value)
			recognized = true
		case echaECLabel.MatchString(label):
			setIfAbsent(record, "ec_number", value)
			recognized = true
		case echaCASLabel.MatchString(label):
			setIfAbsent(record, "cas_number", value)
			recognized = true
		}
	}
	return recognized
}

// substanceLabel matches labels naming the substance itself, not a notifier
// or company.
func substanceLabel(label string) bool {
	label = strings.TrimSpace(label)
	if label == "name" {
		return true
	}
	for _, marker := range []string{"substance name", "chemical name", "iupac name", "active substance", "active ingredient"} {
		if strings.Contains(label, marker) {
			return true
		}
	}
	return false
}

func setIfAbsent(record *core.SourceRecord, key, value string) {
	if value == "" {
		return
	}
	if _, ok := record.IdentityFields[key]; ok {
		return
	}
	record.IdentityFields[key] = value
}

func findDetailLink(doc *html.Node) string {
	var href string
	markup.Walk(doc, func(n *html.Node) bool {
		if href != "" {
			return false
		}
		if markup.IsElement(n, "a") {
			if value := markup.Attr(n, "href"); strings.Contains(value, echaDetailPath) {
				href = value
			}
		}
		return true
	})
	return href
}

// labelledRows collects table rows and definition list pairs as label/value
// pairs. The first cell of a row is its label.
func labelledRows(doc *html.Node) []labelledRow {
	var rows []labelledRow
	markup.Walk(doc, func(n *html.Node) bool {
		switch {
		case markup.IsElement(n, "tr"):
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if markup.IsElement(c, "td") || markup.IsElement(c, "th") {
					cells = append(cells, markup.Text(c))
				}
			}
			if len(cells) >= 2 && cells[0] != "" {
				rows = append(rows, labelledRow{label: cells[0], value: strings.Join(cells[1:], " ")})
			}
			return false
		case markup.IsElement(n, "dt"):
			label := markup.Text(n)
			for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
				if sib.Type != html.ElementNode {
					continue
				}
				if sib.Data == "dd" && label != "" {
					rows = append(rows, labelledRow{label: label, value: markup.Text(sib)})
				}
				break
			}
			return false
		}
		return true
	})
	return rows
}
