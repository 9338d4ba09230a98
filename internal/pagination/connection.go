package pagination

// Edge pairs one row with its cursor.
type Edge[T any] struct {
	Cursor string
	Node   T
}

// PageInfo reports whether more pages exist beyond either end of the
// returned window. has_next_page/has_previous_page are computed by
// comparing the window's extreme cursors against the collection's overall
// extremes, fetched via a single aggregate query rather than a count
// (§4.4).
type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     *string
	EndCursor       *string
}

// Connection is the full result of a page request: the requested window,
// ordered ascending regardless of request direction, plus the collection's
// total count and page info.
type Connection[T any] struct {
	Edges      []Edge[T]
	TotalCount int64
	PageInfo   PageInfo
}

// Extremes is the pair of overall-collection boundary cursors used to
// compute PageInfo without a second count query.
type Extremes struct {
	Min Cursor
	Max Cursor
}

// BuildConnection assembles a Connection from an already-fetched, already
// correctly-ordered window of rows (ascending-by-collection-order), their
// cursors, the collection's total count, and its overall extremes.
//
// When the window was fetched by scanning backward from `before`/from the
// tail (the `last` case), the caller is responsible for having re-reversed
// the raw query result to ascending order before calling this, matching §4.4's "returned connection is exactly the
// requested window, ordered ascending regardless of direction".
func BuildConnection[T any](rows []T, cursors []Cursor, totalCount int64, extremes Extremes) Connection[T] {
	edges := make([]Edge[T], len(rows))
	for i, row := range rows {
		edges[i] = Edge[T]{Cursor: cursors[i].Encode(), Node: row}
	}

	info := PageInfo{}
	if len(cursors) > 0 {
		start := cursors[0].Encode()
		end := cursors[len(cursors)-1].Encode()
		info.StartCursor = &start
		info.EndCursor = &end
		info.HasPreviousPage = !cursors[0].Equal(extremes.Min)
		info.HasNextPage = !cursors[len(cursors)-1].Equal(extremes.Max)
	}

	return Connection[T]{Edges: edges, TotalCount: totalCount, PageInfo: info}
}
