package fragment

import "fmt"

// Model selects which non-projection, non-table category takes part in
// cohesion comparisons.
type Model string

const (
	// ModelClauses compares the structural keywords present in each query.
	ModelClauses Model = "clauses"

	// ModelSelections compares the individual WHERE predicates.
	ModelSelections Model = "selections"
)

// ParseModel validates a model name. The empty string selects ModelClauses.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case "", ModelClauses:
		return ModelClauses, nil
	case ModelSelections:
		return ModelSelections, nil
	}
	return "", fmt.Errorf("unknown fragment model %q: must be %q or %q", s, ModelClauses, ModelSelections)
}

// ParsedQuery holds the fragments of one SQL statement. Both the clause and
// the selection category are always extracted; Model picks which one a
// comparison uses.
type ParsedQuery struct {
	Projections  Set `json:"projections"`
	Clauses      Set `json:"clauses"`
	Selections   Set `json:"selections"`
	Aggregations Set `json:"aggregations"`
	Tables       Set `json:"tables"`
}

// Empty returns the degraded query with every category empty.
func Empty() ParsedQuery {
	return ParsedQuery{
		Projections:  NewSet(),
		Clauses:      NewSet(),
		Selections:   NewSet(),
		Aggregations: NewSet(),
		Tables:       NewSet(),
	}
}

// IsEmpty reports whether no category holds a fragment.
func (q ParsedQuery) IsEmpty() bool {
	return q.Projections.Len() == 0 && q.Clauses.Len() == 0 && q.Selections.Len() == 0 &&
		q.Aggregations.Len() == 0 && q.Tables.Len() == 0
}

// Categories returns the four compared categories in fixed order:
// projections, clauses or selections, aggregations, tables.
func (q ParsedQuery) Categories(m Model) [4]Set {
	second := q.Clauses
	if m == ModelSelections {
		second = q.Selections
	}
	return [4]Set{q.Projections, second, q.Aggregations, q.Tables}
}

// Fragments returns the union of the four compared categories.
func (q ParsedQuery) Fragments(m Model) Set {
	out := make(Set)
	for _, c := range q.Categories(m) {
		out.AddAll(c)
	}
	return out
}
