// Package pagination implements the cursor-based pagination primitive of
// §4.4: deterministic, stable, forward- and backward-paging over ordered
// query results, generalizing the positive/negative-count cursor
// convention the teacher uses in its own
// Transactions(cursor *string, count int32) method.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned by page request validation (§4.4, mirrored in the API
// error taxonomy of §7).
var (
	ErrFirstAndLast    = errors.New("pagination: cannot specify both first and last")
	ErrNegativeFirst   = errors.New("pagination: first must not be negative")
	ErrNegativeLast    = errors.New("pagination: last must not be negative")
	ErrInvalidCursor   = errors.New("pagination: cursor is not valid for this connection")
)

// Order is the direction a simple integer cursor is compared in.
type Order int

const (
	AscendingI64 Order = iota
	DescendingI64
)

// Cursor is a totally ordered opaque value. For simple connections it
// wraps a signed 64-bit row identifier; a nested cursor (NewNested)
// composes two cursors lexicographically for compound orderings (accounts by amount/tx-count/
// delegated-stake/age, each tie-broken by dense row id).
type Cursor struct {
	order Order
	value int64
	inner *Cursor // non-nil for a nested (field_value:row_id) cursor
}

// NewI64 builds a simple cursor over a signed 64-bit value.
func NewI64(order Order, v int64) Cursor {
	return Cursor{order: order, value: v}
}

// NewNested builds a compound cursor: lexicographic on (outer, inner),
// where inner is always the dense row-id tiebreaker.
func NewNested(outer Cursor, rowID int64) Cursor {
	in := NewI64(AscendingI64, rowID)
	outer.inner = &in
	return outer
}

// Less reports whether c sorts before other under the ascending collection
// order (direction is applied by the caller when composing final result
// ordering).
func (c Cursor) Less(other Cursor) bool {
	a, b := c.value, other.value
	if c.order == DescendingI64 {
		a, b = -a, -b
	}
	if a != b {
		return a < b
	}
	if c.inner != nil && other.inner != nil {
		return c.inner.Less(*other.inner)
	}
	return false
}

// Equal reports value equality, including the inner tiebreaker: two
// nested cursors must match on both parts, and a nested cursor never
// equals a simple one. Order is not compared.
func (c Cursor) Equal(other Cursor) bool {
	if c.value != other.value {
		return false
	}
	if c.inner != nil && other.inner != nil {
		return c.inner.Equal(*other.inner)
	}
	return c.inner == nil && other.inner == nil
}

// Value returns the raw ordering value the cursor wraps, ignoring any
// inner tiebreaker. Callers that need to turn a decoded cursor back into
// a SQL bind parameter use this instead of re-parsing Encode's output.
func (c Cursor) Value() int64 { return c.value }

// Encode renders the cursor as the opaque base64 string handed to API
// clients.
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.value, 10)
	if c.inner != nil {
		raw = fmt.Sprintf("%s:%d", raw, c.inner.value)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque cursor string produced by Encode, preserving the
// caller-specified order (order is a property of the field being sorted
// on, not of the cursor wire format).
func Decode(order Order, s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parts := strings.SplitN(string(raw), ":", 2)

	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	c := NewI64(order, v)

	if len(parts) == 2 {
		rowID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		c = NewNested(c, rowID)
	}
	return c, nil
}

// Request is a single (first, after) or (last, before) page request as
// taken directly off a GraphQL connection field's arguments.
type Request struct {
	First  *int32
	After  *string
	Last   *int32
	Before *string
}

// Validate rejects both-first-and-last and negative counts, per §4.4.
func (r Request) Validate() error {
	if r.First != nil && r.Last != nil {
		return ErrFirstAndLast
	}
	if r.First != nil && *r.First < 0 {
		return ErrNegativeFirst
	}
	if r.Last != nil && *r.Last < 0 {
		return ErrNegativeLast
	}
	return nil
}

// Limit applies the collection-wide configured ceiling to the requested
// page size: min(requested, configLimit). A request with neither First
// nor Last set defaults to configLimit items from the front.
func (r Request) Limit(configLimit int32) (count int32, fromEnd bool) {
	switch {
	case r.First != nil:
		count = *r.First
		fromEnd = false
	case r.Last != nil:
		count = *r.Last
		fromEnd = true
	default:
		count = configLimit
		fromEnd = false
	}
	if count > configLimit {
		count = configLimit
	}
	return count, fromEnd
}
