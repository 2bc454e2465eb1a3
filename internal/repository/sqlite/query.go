package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/needley/internal/repository"
)

// listQuery describes how one entity is paged and filtered.
//
// columns maps API field names (repository.UserFields etc.) to SQL
// expressions. Field names never reach the SQL text unless they are in this
// map, and values are always bound as parameters.
type listQuery struct {
	selectCols string
	from       string
	key        string // primary key expression, also the stable sort order
	columns    map[string]string
}

// compileFilter turns a filter into a WHERE fragment (without the keyword)
// and its parameters. An empty filter compiles to "1=1".
func (q listQuery) compileFilter(f repository.Filter) (string, []any, error) {
	if len(f) == 0 {
		return "1=1", nil, nil
	}
	parts := make([]string, 0, len(f))
	params := make([]any, 0, len(f))
	for _, c := range f {
		col, ok := q.columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", c.Field)
		}
		value := c.Value
		if t, ok := value.(time.Time); ok {
			value = toUnix(t)
		}
		switch c.Op {
		case repository.OpExact:
			parts = append(parts, col+" = ?")
		case repository.OpLT:
			parts = append(parts, col+" < ?")
		case repository.OpGT:
			parts = append(parts, col+" > ?")
		case repository.OpIContains:
			parts = append(parts, fmt.Sprintf("instr(%s(%s), %s(?)) > 0", casefoldFunc, col, casefoldFunc))
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
		params = append(params, value)
	}
	return strings.Join(parts, " AND "), params, nil
}

// compile builds the page SELECT and the COUNT for opts. The page query
// fetches one row more than the limit so the caller can tell whether
// another page exists.
func (q listQuery) compile(opts repository.ListOptions) (pageSQL string, pageArgs []any, countSQL string, countArgs []any, err error) {
	where, params, err := q.compileFilter(opts.Filter)
	if err != nil {
		return "", nil, "", nil, err
	}
	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", q.from, where)
	countArgs = params

	pageArgs = append([]any{}, params...)
	if opts.After != "" {
		where += " AND " + q.key + " > ?"
		pageArgs = append(pageArgs, opts.After)
	}
	if opts.Before != "" {
		where += " AND " + q.key + " < ?"
		pageArgs = append(pageArgs, opts.Before)
	}
	order := "ASC"
	if opts.Backward() {
		order = "DESC"
	}
	pageSQL = fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s %s LIMIT ?",
		q.selectCols, q.from, where, q.key, order)
	pageArgs = append(pageArgs, opts.Limit()+1)
	return pageSQL, pageArgs, countSQL, countArgs, nil
}

// listPage runs a paged query and returns items in primary-key order.
func listPage[T any](ctx context.Context, conn *sql.DB, q listQuery, opts repository.ListOptions, scan func(rowScanner) (T, error)) (*repository.Page[T], error) {
	pageSQL, pageArgs, countSQL, countArgs, err := q.compile(opts)
	if err != nil {
		return nil, err
	}

	page := &repository.Page[T]{}
	if err := conn.QueryRowContext(ctx, countSQL, countArgs...).Scan(&page.TotalCount); err != nil {
		return nil, fmt.Errorf("counting: %w", err)
	}

	rows, err := conn.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0, opts.Limit()+1)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating: %w", err)
	}

	limit := opts.Limit()
	more := len(items) > limit
	if more {
		items = items[:limit]
	}
	if opts.Backward() {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
		page.HasPreviousPage = more
	} else {
		page.HasNextPage = more
	}
	page.Items = items
	return page, nil
}
