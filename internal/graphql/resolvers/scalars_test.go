package resolvers

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigIntRoundTrip(t *testing.T) {
	var b BigInt
	require.NoError(t, b.UnmarshalGraphQL("0x2a"))
	j, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0x2a"`, string(j))

	require.NoError(t, b.UnmarshalGraphQL(int32(7)))
	j, err = b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0x7"`, string(j))

	assert.Error(t, b.UnmarshalGraphQL(true))
}

func TestNewBigInt(t *testing.T) {
	assert.Nil(t, NewBigInt(nil))

	got := NewBigInt(big.NewInt(255))
	require.NotNil(t, got)
	j, err := got.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0xff"`, string(j))
}

func TestLongRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  Long
	}{
		{"int32", int32(42), 42},
		{"float64", float64(42), 42},
		{"string", "42", 42},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var l Long
			require.NoError(t, l.UnmarshalGraphQL(tc.input))
			assert.Equal(t, tc.want, l)
		})
	}

	var l Long
	assert.Error(t, l.UnmarshalGraphQL("not a number"))
	assert.Error(t, l.UnmarshalGraphQL(true))

	l = 18446744073709551615
	j, err := l.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", string(j))
}

func TestHashRoundTrip(t *testing.T) {
	var h Hash
	assert.Error(t, h.UnmarshalGraphQL("0x"))

	// a real 32-byte hash, 0x-prefixed and bare.
	hex32 := "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
	require.NoError(t, h.UnmarshalGraphQL("0x"+hex32))
	j, err := h.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0x`+hex32+`"`, string(j))

	require.NoError(t, h.UnmarshalGraphQL(hex32))

	assert.Error(t, h.UnmarshalGraphQL("0x1234"))
	assert.Error(t, h.UnmarshalGraphQL(42))
}

func TestBytesRoundTrip(t *testing.T) {
	var b Bytes
	require.NoError(t, b.UnmarshalGraphQL("0xdeadbeef"))
	j, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0xdeadbeef"`, string(j))

	require.NoError(t, b.UnmarshalGraphQL("0x"))
	j, err = b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0x"`, string(j))

	assert.Error(t, b.UnmarshalGraphQL("not hex"))
	assert.Error(t, b.UnmarshalGraphQL(7))
}

func TestCursorRoundTrip(t *testing.T) {
	valid := Cursor("").ImplementsGraphQLType("Cursor")
	assert.True(t, valid)

	var c Cursor
	require.NoError(t, c.UnmarshalGraphQL("aGVsbG8"))
	j, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"aGVsbG8"`, string(j))

	assert.Error(t, c.UnmarshalGraphQL("not base64!!"))
	assert.Error(t, c.UnmarshalGraphQL(1))
}

func TestImplementsGraphQLType(t *testing.T) {
	assert.True(t, BigInt{}.ImplementsGraphQLType("BigInt"))
	assert.False(t, BigInt{}.ImplementsGraphQLType("Long"))
	assert.True(t, Long(0).ImplementsGraphQLType("Long"))
	assert.True(t, Hash{}.ImplementsGraphQLType("Hash"))
	assert.True(t, Bytes(nil).ImplementsGraphQLType("Bytes"))
}
