package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorEncodeDecodeSimple(t *testing.T) {
	c := NewI64(AscendingI64, 42)
	enc := c.Encode()

	got, err := Decode(AscendingI64, enc)
	require.NoError(t, err)
	assert.True(t, got.Equal(c))
}

func TestCursorEncodeDecodeNested(t *testing.T) {
	c := NewNested(NewI64(DescendingI64, 7), 99)
	enc := c.Encode()

	got, err := Decode(DescendingI64, enc)
	require.NoError(t, err)
	assert.True(t, got.Equal(c))
}

func TestCursorLessAscending(t *testing.T) {
	a := NewI64(AscendingI64, 1)
	b := NewI64(AscendingI64, 2)
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestCursorLessDescending(t *testing.T) {
	a := NewI64(DescendingI64, 1)
	b := NewI64(DescendingI64, 2)
	assert.True(t, b.Less(a))
	assert.False(t, a.Less(b))
}

func TestCursorLessNestedTiebreak(t *testing.T) {
	a := NewNested(NewI64(AscendingI64, 5), 1)
	b := NewNested(NewI64(AscendingI64, 5), 2)
	assert.True(t, a.Less(b))
}

func TestRequestValidateRejectsBothFirstAndLast(t *testing.T) {
	first := int32(10)
	last := int32(10)
	r := Request{First: &first, Last: &last}
	assert.ErrorIs(t, r.Validate(), ErrFirstAndLast)
}

func TestRequestValidateRejectsNegativeFirst(t *testing.T) {
	first := int32(-1)
	r := Request{First: &first}
	assert.ErrorIs(t, r.Validate(), ErrNegativeFirst)
}

func TestRequestValidateRejectsNegativeLast(t *testing.T) {
	last := int32(-1)
	r := Request{Last: &last}
	assert.ErrorIs(t, r.Validate(), ErrNegativeLast)
}

func TestRequestLimitAppliesConfigCeiling(t *testing.T) {
	first := int32(1000)
	r := Request{First: &first}
	count, fromEnd := r.Limit(50)
	assert.Equal(t, int32(50), count)
	assert.False(t, fromEnd)
}

func TestRequestLimitDefaultsToFront(t *testing.T) {
	r := Request{}
	count, fromEnd := r.Limit(25)
	assert.Equal(t, int32(25), count)
	assert.False(t, fromEnd)
}

func TestRequestLimitLastSetsFromEnd(t *testing.T) {
	last := int32(5)
	r := Request{Last: &last}
	count, fromEnd := r.Limit(50)
	assert.Equal(t, int32(5), count)
	assert.True(t, fromEnd)
}

func TestBuildConnectionPageInfoBoundaries(t *testing.T) {
	rows := []int{10, 11, 12}
	cursors := []Cursor{
		NewI64(AscendingI64, 10),
		NewI64(AscendingI64, 11),
		NewI64(AscendingI64, 12),
	}
	extremes := Extremes{Min: NewI64(AscendingI64, 0), Max: NewI64(AscendingI64, 20)}

	conn := BuildConnection(rows, cursors, 21, extremes)
	assert.Len(t, conn.Edges, 3)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.True(t, conn.PageInfo.HasPreviousPage)
	assert.Equal(t, int64(21), conn.TotalCount)
}

func TestBuildConnectionRoundTripCoversCollectionExactlyOnce(t *testing.T) {
	// Simulate a collection of dense ids 0..9, paged in chunks of 3, and
	// verify concatenating every page reproduces the full ordered
	// collection exactly once (§8 pagination round-trip property).
	all := []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	extremes := Extremes{Min: NewI64(AscendingI64, 0), Max: NewI64(AscendingI64, 9)}

	var seen []int64
	pageSize := 3
	for start := 0; start < len(all); start += pageSize {
		end := start + pageSize
		if end > len(all) {
			end = len(all)
		}
		page := all[start:end]

		cursors := make([]Cursor, len(page))
		for i, v := range page {
			cursors[i] = NewI64(AscendingI64, v)
		}
		conn := BuildConnection(page, cursors, int64(len(all)), extremes)
		for _, e := range conn.Edges {
			seen = append(seen, e.Node)
		}
	}

	assert.Equal(t, all, seen)
}
