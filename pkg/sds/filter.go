package sds

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
)

// filterQuery is the root of the search filter grammar:
//
//	status = "approved" AND product_name ~ "acetone"
//
// Conditions are joined with AND only. "=" requires an exact match and "~"
// a case-blind substring match. Values are always double-quoted.
type filterQuery struct {
	First *filterCond   `parser:"@@"`
	Rest  []*filterCond `parser:"('AND' @@)*"`
}

type filterCond struct {
	Field string `parser:"@Ident"`
	Op    string `parser:"@('=' | '~')"`
	Value string `parser:"@String"`
}

// filterColumns whitelists the queryable fields and maps them to columns.
// Anything else is rejected before it reaches SQL.
var filterColumns = map[string]string{
	"document_number": "document_number",
	"product_name":    "product_name",
	"cas_number":      "cas_number",
	"supplier_name":   "supplier_name",
	"status":          "status",
	"revision_label":  "revision_label",
}

var filterParser = participle.MustBuild[filterQuery](
	participle.Unquote("String"),
)

// ParseFilterQuery compiles a filter expression into parameterized SQL
// conditions, one condition per clause with exactly one bind argument each.
func ParseFilterQuery(q string) ([]string, []any, error) {
	parsed, err := filterParser.ParseString("", q)
	if err != nil {
		return nil, nil, &ValidationError{Field: "filterQuery", Message: err.Error()}
	}

	clauses := append([]*filterCond{parsed.First}, parsed.Rest...)
	conds := make([]string, 0, len(clauses))
	args := make([]any, 0, len(clauses))
	for _, c := range clauses {
		column, ok := filterColumns[strings.ToLower(c.Field)]
		if !ok {
			return nil, nil, &ValidationError{
				Field:   "filterQuery",
				Message: fmt.Sprintf("unknown field %q", c.Field),
			}
		}
		switch c.Op {
		case "=":
			conds = append(conds, column+" = ?")
			args = append(args, c.Value)
		case "~":
			conds = append(conds, "LOWER("+column+") LIKE ?")
			args = append(args, "%"+strings.ToLower(c.Value)+"%")
		default:
			return nil, nil, &ValidationError{
				Field:   "filterQuery",
				Message: fmt.Sprintf("unsupported operator %q", c.Op),
			}
		}
	}
	return conds, args, nil
}
