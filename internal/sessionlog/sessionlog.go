package sessionlog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed session.cue
var sessionCUE string

// Document is a parsed session log. It is not safe for concurrent use; each
// session owns its Document.
type Document struct {
	Path string

	doc    cue.Value
	schema cue.Value
}

// Session holds both views of a log.
type Session struct {
	Chosen          []string
	Recommendations [][]string
}

// Load reads the log at path. A missing file or a document that is not
// valid JSON is a *LoadError. View contents are not checked here.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return Parse(path, data)
}

// Parse builds a Document from raw JSON. path is used for error messages
// and source positions only.
func Parse(path string, data []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(sessionCUE, cue.Filename("session.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile session schema: %w", err)
	}

	expr, err := cuejson.Extract(path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if doc.IncompleteKind() != cue.StructKind {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("top-level value is %v, want object", doc.IncompleteKind())}
	}

	return &Document{Path: path, doc: doc, schema: schema}, nil
}

// validate checks the document against the named definition.
func (d *Document) validate(view, definition string) error {
	def := d.schema.LookupPath(cue.ParsePath(definition))
	if err := def.Unify(d.doc).Validate(cue.Concrete(true)); err != nil {
		return &ViewError{Path: d.Path, View: view, Err: err}
	}
	return nil
}

func (d *Document) decode(view, path string, x any) error {
	v := d.doc.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return nil
	}
	if err := v.Decode(x); err != nil {
		return &ViewError{Path: d.Path, View: view, Err: err}
	}
	return nil
}

type chosenStep struct {
	SQL *struct {
		SQL *string `json:"sql"`
	} `json:"SQL"`
}

// ChosenQueries returns the SQL the user ran at each turn, in order. A turn
// without SQL contributes "" so turn positions are preserved.
func (d *Document) ChosenQueries() ([]string, error) {
	if err := d.validate(ViewChosen, "#Chosen"); err != nil {
		return nil, err
	}
	var steps []chosenStep
	if err := d.decode(ViewChosen, "userdata.suerQueryData", &steps); err != nil {
		return nil, err
	}
	out := make([]string, len(steps))
	for i, s := range steps {
		if s.SQL != nil && s.SQL.SQL != nil {
			out[i] = *s.SQL.SQL
		}
	}
	return out, nil
}

type recommendationStep struct {
	QuerySugg *struct {
		SQL []*string `json:"sql"`
	} `json:"QuerySugg"`
}

// Recommendations returns the recommendation list of each turn, the
// cold-start list first. Turns that recorded no recommendation list are
// skipped.
func (d *Document) Recommendations() ([][]string, error) {
	if err := d.validate(ViewRecommendations, "#Recommendations"); err != nil {
		return nil, err
	}
	var initial []*string
	if err := d.decode(ViewRecommendations, "userdata.origQuerySugg.sql", &initial); err != nil {
		return nil, err
	}
	var steps []recommendationStep
	if err := d.decode(ViewRecommendations, "userdata.suerQueryData", &steps); err != nil {
		return nil, err
	}

	out := [][]string{derefAll(initial)}
	for _, s := range steps {
		if s.QuerySugg == nil || s.QuerySugg.SQL == nil {
			continue
		}
		out = append(out, derefAll(s.QuerySugg.SQL))
	}
	return out, nil
}

// Session returns both views. It fails if either view is invalid; callers
// that need per-view isolation use ChosenQueries and Recommendations.
func (d *Document) Session() (Session, error) {
	chosen, err := d.ChosenQueries()
	if err != nil {
		return Session{}, err
	}
	recs, err := d.Recommendations()
	if err != nil {
		return Session{}, err
	}
	return Session{Chosen: chosen, Recommendations: recs}, nil
}

// DatabaseID returns metadata.db_id, or "" when the log does not name its
// database.
func (d *Document) DatabaseID() (string, error) {
	if err := d.validate(ViewMetadata, "#Metadata"); err != nil {
		return "", err
	}
	v := d.doc.LookupPath(cue.ParsePath("metadata.db_id"))
	if !v.Exists() {
		return "", nil
	}
	id, err := v.String()
	if err != nil {
		return "", &ViewError{Path: d.Path, View: ViewMetadata, Err: err}
	}
	return id, nil
}

func derefAll(items []*string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		if s != nil {
			out[i] = *s
		}
	}
	return out
}
