package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agritox/agritox/internal/core"
)

func TestPubChemTwoStepLookup(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/compound/name/glyphosate/cids/JSON"):
			_, _ = w.Write([]byte(`{"IdentifierList":{"CID":[3496,999]}}`))
		case strings.Contains(r.URL.Path, "/compound/cid/3496/property/"):
			_, _ = w.Write([]byte(`{"PropertyTable":{"Properties":[{"CID":3496,"Title":"Glyphosate","IUPACName":"2-(phosphonomethylamino)acetic acid","MolecularFormula":"C3H8NO5P","MolecularWeight":"169.07","InChIKey":"XDDAORKBJWWYJS-UHFFFAOYSA-N"}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	adapter := &PubChemAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL + "/rest/pug"}}
	record := adapter.Fetch(context.Background(), "glyphosate")

	require.Equal(t, core.SourceStatusOK, record.Status)
	require.Nil(t, record.Note)
	require.Equal(t, int64(3496), record.IdentityFields["cid"])
	require.Equal(t, "Glyphosate", record.StringField("title"))
	require.Equal(t, "C3H8NO5P", record.StringField("molecular_formula"))
	require.Equal(t, "169.07", record.StringField("molecular_weight"))
	require.Len(t, paths, 2)
	require.Contains(t, record.Provenance.URL, "/property/")
}

func TestPubChemNotFoundIsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := &PubChemAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL}}
	record := adapter.Fetch(context.Background(), "Unknown Compound 9999")

	require.Equal(t, core.SourceStatusOK, record.Status)
	require.Equal(t, "no match", *record.Note)
	require.Empty(t, record.IdentityFields)
}

func TestPubChemUndecodableDetailKeepsCID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/cids/JSON") {
			_, _ = w.Write([]byte(`{"IdentifierList":{"CID":[42]}}`))
			return
		}
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	adapter := &PubChemAdapter{Base: Base{Client: server.Client(), BaseURL: server.URL}}
	record := adapter.Fetch(context.Background(), "thing")

	require.Equal(t, core.SourceStatusOK, record.Status)
	require.Equal(t, int64(42), record.IdentityFields["cid"])
	require.Contains(t, *record.Note, "42")
}

func TestMolecularWeightNumeric(t *testing.T) {
	require.Equal(t, "169.07", molecularWeight([]byte(`169.07`)))
	require.Equal(t, "169.07", molecularWeight([]byte(`"169.07"`)))
	require.Equal(t, "", molecularWeight(nil))
}
