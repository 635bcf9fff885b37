package storage

import (
	"fmt"
	"strings"

	"github.com/guttosm/stockdaily/internal/domain/models"
)

// predicate is one "column op $n" condition with its bound value.
// column and op are always compile-time constants; only arg comes from callers.
type predicate struct {
	column string
	op     string
	arg    any
}

// predicates is an ordered condition list rendered with positional placeholders.
type predicates []predicate

// filterPredicates turns the optional filters into predicates, in the fixed
// order start date, end date, symbol. Absent fields contribute nothing.
func filterPredicates(f models.RecordFilter) predicates {
	var p predicates
	if f.StartDate != nil {
		p = append(p, predicate{column: "date", op: ">=", arg: f.StartDate.Format(dateLayout)})
	}
	if f.EndDate != nil {
		p = append(p, predicate{column: "date", op: "<=", arg: f.EndDate.Format(dateLayout)})
	}
	if f.Symbol != "" {
		p = append(p, predicate{column: "symbol", op: "=", arg: f.Symbol})
	}
	return p
}

// where renders "WHERE 1=1 AND c1 op $1 AND c2 op $2 ..." and the matching args.
func (p predicates) where() (string, []any) {
	var sb strings.Builder
	sb.WriteString("WHERE 1=1")
	args := make([]any, 0, len(p))
	for _, c := range p {
		args = append(args, c.arg)
		fmt.Fprintf(&sb, " AND %s %s $%d", c.column, c.op, len(args))
	}
	return sb.String(), args
}

// conjunction renders "c1 op $1 AND c2 op $2 ..." with no leading 1=1.
func (p predicates) conjunction() (string, []any) {
	parts := make([]string, 0, len(p))
	args := make([]any, 0, len(p))
	for _, c := range p {
		args = append(args, c.arg)
		parts = append(parts, fmt.Sprintf("%s %s $%d", c.column, c.op, len(args)))
	}
	return strings.Join(parts, " AND "), args
}
