package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agritox/agritox/internal/core"
)

// PubChemSource is the source id of the PubChem adapter.
const PubChemSource = "pubchem"

const (
	pubchemDefaultBase = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	pubchemProperties  = "Title,IUPACName,MolecularFormula,MolecularWeight,InChIKey"
)

// PubChemAdapter looks up compound identity through the PUG REST API.
type PubChemAdapter struct {
	Base
}

// ID returns the source id.
func (a *PubChemAdapter) ID() string { return PubChemSource }

// Role returns the contribution of this source.
func (a *PubChemAdapter) Role() core.SourceRole { return core.SourceRoleIdentity }

// Fetch resolves name to a CID and retrieves its computed properties.
func (a *PubChemAdapter) Fetch(ctx context.Context, name string) *core.SourceRecord {
	return a.run(ctx, PubChemSource, core.SourceRoleIdentity, name, a.fetch)
}

// Probe checks that the PubChem API answers.
func (a *PubChemAdapter) Probe(ctx context.Context) ProbeResult {
	return a.probe(ctx, PubChemSource, JoinPath(a.baseURL(), "compound", "name", "water", "cids", "JSON").String())
}

func (a *PubChemAdapter) fetch(ctx context.Context, name string) (*core.SourceRecord, string, error) {
	req := a.requester()
	base := a.baseURL()

	lookup := JoinPath(base, "compound", "name", name, "cids", "JSON")
	resp, err := req.Get(ctx, "pubchem cid lookup", lookup, JSONAccept())
	if err != nil {
		return nil, lookup.String(), err
	}

	record := core.NewSourceRecord(PubChemSource, core.SourceRoleIdentity)
	if resp.StatusCode == http.StatusNotFound {
		record.SetNote(noMatchNote)
		return record, lookup.String(), nil
	}
	if !resp.Success() {
		return nil, lookup.String(), core.StatusError("pubchem cid lookup", resp.StatusCode)
	}

	var ids struct {
		IdentifierList struct {
			CID []int64 `json:"CID"`
		} `json:"IdentifierList"`
	}
	if err := json.Unmarshal(resp.Body, &ids); err != nil {
		return nil, lookup.String(), core.ParseError("pubchem cid lookup", err)
	}
	if len(ids.IdentifierList.CID) == 0 {
		record.SetNote(noMatchNote)
		return record, lookup.String(), nil
	}

	cid := ids.IdentifierList.CID[0]
	record.IdentityFields["cid"] = cid

	detail := JoinPath(base, "compound", "cid", strconv.FormatInt(cid, 10), "property", pubchemProperties, "JSON")
	resp, err = req.Get(ctx, "pubchem properties", detail, JSONAccept())
	if err != nil {
		return nil, detail.String(), err
	}
	if !resp.Success() {
		return nil, detail.String(), core.StatusError("pubchem properties", resp.StatusCode)
	}

	var props struct {
		PropertyTable struct {
			Properties []struct {
				Title            string          `json:"Title"`
				IUPACName        string          `json:"IUPACName"`
				MolecularFormula string          `json:"MolecularFormula"`
				MolecularWeight  json.RawMessage `json:"MolecularWeight"`
				InChIKey         string          `json:"InChIKey"`
			} `json:"Properties"`
		} `json:"PropertyTable"`
	}
	if err := json.Unmarshal(resp.Body, &props); err != nil || len(props.PropertyTable.Properties) == 0 {
		record.SetNote(fmt.Sprintf("properties unavailable for CID %d", cid))
		return record, detail.String(), nil
	}

	p := props.PropertyTable.Properties[0]
	setString(record, "title", p.Title)
	setString(record, "iupac_name", p.IUPACName)
	setString(record, "molecular_formula", p.MolecularFormula)
	setString(record, "molecular_weight", molecularWeight(p.MolecularWeight))
	setString(record, "inchikey", p.InChIKey)

	return record, detail.String(), nil
}

func (a *PubChemAdapter) baseURL() *url.URL {
	return ParseBase(a.BaseURL, pubchemDefaultBase)
}

// PubChem reports molecular weight as a string in current responses and as a
// number in older ones.
func molecularWeight(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return strconv.FormatFloat(number, 'f', -1, 64)
	}
	return ""
}

func setString(record *core.SourceRecord, key, value string) {
	if value == "" {
		return
	}
	record.IdentityFields[key] = value
}
