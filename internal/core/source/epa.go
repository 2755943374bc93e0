package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/agritox/agritox/internal/core"
)

// EPASource is the source id of the EPA CompTox adapter.
const EPASource = "epa"

const epaDefaultBase = "https://api-ccte.epa.gov"

// EPAAdapter queries the EPA CompTox chemical search API.
type EPAAdapter struct {
	Base
	APIKey string
}

type epaHit struct {
	DTXSID        string `json:"dtxsid"`
	CASRN         string `json:"casrn"`
	PreferredName string `json:"preferredName"`
}

// ID returns the source id.
func (a *EPAAdapter) ID() string { return EPASource }

// Role returns the contribution of this source.
func (a *EPAAdapter) Role() core.SourceRole { return core.SourceRoleIdentity }

// Fetch runs an exact-match chemical search.
func (a *EPAAdapter) Fetch(ctx context.Context, name string) *core.SourceRecord {
	return a.run(ctx, EPASource, core.SourceRoleIdentity, name, a.fetch)
}

// Probe checks that the CompTox API answers.
func (a *EPAAdapter) Probe(ctx context.Context) ProbeResult {
	return a.probe(ctx, EPASource, a.searchURL("water").String())
}

func (a *EPAAdapter) fetch(ctx context.Context, name string) (*core.SourceRecord, string, error) {
	target := a.searchURL(name)
	header := JSONAccept()
	if a.APIKey != "" {
		header.Set("x-api-key", a.APIKey)
	}

	resp, err := a.requester().Get(ctx, "epa search", target, header)
	if err != nil {
		return nil, target.String(), err
	}

	record := core.NewSourceRecord(EPASource, core.SourceRoleIdentity)
	if resp.StatusCode == http.StatusNotFound {
		record.SetNote(noMatchNote)
		return record, target.String(), nil
	}
	if !resp.Success() {
		return nil, target.String(), core.StatusError("epa search", resp.StatusCode)
	}

	hits, err := decodeEPAHits(resp.Body)
	if err != nil {
		return nil, target.String(), core.ParseError("epa search", err)
	}
	if len(hits) == 0 {
		record.SetNote(noMatchNote)
		return record, target.String(), nil
	}

	hit := hits[0]
	setString(record, "dtxsid", hit.DTXSID)
	setString(record, "casrn", hit.CASRN)
	setString(record, "preferred_name", hit.PreferredName)
	setString(record, "title", hit.PreferredName)
	return record, target.String(), nil
}

func (a *EPAAdapter) searchURL(name string) *url.URL {
	return JoinPath(ParseBase(a.BaseURL, epaDefaultBase), "chemical", "search", "equal", name)
}

// The search endpoint answers with an array; single-object bodies appear on
// some deployments.
func decodeEPAHits(body []byte) ([]epaHit, error) {
	var hits []epaHit
	if err := json.Unmarshal(body, &hits); err == nil {
		return hits, nil
	}
	var hit epaHit
	if err := json.Unmarshal(body, &hit); err != nil {
		return nil, err
	}
	if hit.DTXSID == "" && hit.PreferredName == "" {
		return nil, nil
	}
	return []epaHit{hit}, nil
}
