package postgres

import (
	"fmt"
	"strings"

	"github.com/predicthub/predicthub/internal/domain"
)

// windowQuery appends the time range, newest-first ordering and paging of
// opts to base, filtering and ordering on column. base must not end in a
// WHERE clause.
func windowQuery(base, column string, opts domain.ListOpts) (string, []any) {
	var (
		b    strings.Builder
		args []any
		cond []string
	)
	b.WriteString(base)

	if opts.Since != nil {
		args = append(args, *opts.Since)
		cond = append(cond, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		cond = append(cond, fmt.Sprintf("%s <= $%d", column, len(args)))
	}
	if len(cond) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(cond, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s DESC", column)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}
