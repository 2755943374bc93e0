package resolver

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/source"
)

const wikidataDefaultBase = "https://www.wikidata.org/w/api.php"

// Entity is a structured alias lookup hit.
type Entity struct {
	Label string
	URL   string
}

// WikidataLookup searches Wikidata entities by label.
type WikidataLookup struct {
	Requester source.Requester
	BaseURL   string
	Language  string
}

// Lookup returns the top entity for name, or nil when there is none.
func (w *WikidataLookup) Lookup(ctx context.Context, name string) (*Entity, error) {
	target := *source.ParseBase(w.BaseURL, wikidataDefaultBase)
	lang := w.Language
	if lang == "" {
		lang = "en"
	}
	query := url.Values{}
	query.Set("action", "wbsearchentities")
	query.Set("search", name)
	query.Set("language", lang)
	query.Set("format", "json")
	query.Set("limit", "5")
	target.RawQuery = query.Encode()

	resp, err := w.Requester.Get(ctx, "wikidata search", &target, source.JSONAccept())
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, core.StatusError("wikidata search", resp.StatusCode)
	}

	var payload struct {
		Search []struct {
			ID         string `json:"id"`
			Label      string `json:"label"`
			ConceptURI string `json:"concepturi"`
		} `json:"search"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, core.ParseError("wikidata search", err)
	}
	if len(payload.Search) == 0 {
		return nil, nil
	}

	top := payload.Search[0]
	link := top.ConceptURI
	if link == "" && top.ID != "" {
		link = "https://www.wikidata.org/wiki/" + top.ID
	}
	return &Entity{Label: top.Label, URL: link}, nil
}
