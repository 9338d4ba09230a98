// Package resolvers implements the GraphQL root and per-entity resolvers
// graph-gophers/graphql-go dispatches field resolution to, generalizing
// the teacher's resolver pattern (one struct per entity, embedding the
// domain type plus a store handle, with lazily-resolved fields) from
// Opera accounts/transactions/blocks to Concordium's entities.
package resolvers

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BigInt is the §6 BigInt scalar: a large integer accepted as a JSON
// number or 0x-prefixed hex string, emitted as 0x-prefixed hex -- the
// same wire convention the teacher's own BigInt scalar uses for WEI
// amounts, reused here for microCCD amounts and token supplies.
type BigInt hexutil.Big

func NewBigInt(v *big.Int) *BigInt {
	if v == nil {
		return nil
	}
	b := BigInt(hexutil.Big(*v))
	return &b
}

func NewBigIntFromHex(v hexutil.Big) BigInt { return BigInt(v) }

func (BigInt) ImplementsGraphQLType(name string) bool { return name == "BigInt" }

func (b *BigInt) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case string:
		i := (*hexutil.Big)(b)
		return i.UnmarshalText([]byte(v))
	case int32:
		*b = BigInt(hexutil.Big(*big.NewInt(int64(v))))
		return nil
	case float64:
		*b = BigInt(hexutil.Big(*big.NewInt(int64(v))))
		return nil
	default:
		return fmt.Errorf("resolvers: BigInt: unsupported input type %T", input)
	}
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	h := hexutil.Big(b)
	return []byte(`"` + h.String() + `"`), nil
}

// Long is the §6 Long scalar: a 64-bit unsigned integer. graphql-go's
// default int coercion is 32-bit, so every count/index/height field uses
// this instead, matching the teacher's own Long scalar for nonces/gas.
type Long uint64

func (Long) ImplementsGraphQLType(name string) bool { return name == "Long" }

func (l *Long) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case int32:
		*l = Long(v)
		return nil
	case float64:
		*l = Long(v)
		return nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("resolvers: Long: %w", err)
		}
		*l = Long(n)
		return nil
	default:
		return fmt.Errorf("resolvers: Long: unsupported input type %T", input)
	}
}

func (l Long) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(l), 10)), nil
}

// Hash is the §6 Hash scalar: a 32-byte digest rendered as 0x-prefixed
// hex, used for block and transaction hashes and module references.
type Hash [32]byte

func (Hash) ImplementsGraphQLType(name string) bool { return name == "Hash" }

func (h *Hash) UnmarshalGraphQL(input interface{}) error {
	s, ok := input.(string)
	if !ok {
		return fmt.Errorf("resolvers: Hash: unsupported input type %T", input)
	}
	raw, err := hex.DecodeString(trim0x(s))
	if err != nil {
		return fmt.Errorf("resolvers: Hash: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("resolvers: Hash: expected 32 bytes, got %d", len(raw))
	}
	copy(h[:], raw)
	return nil
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"0x` + hex.EncodeToString(h[:]) + `"`), nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Bytes is the §6 Bytes scalar: arbitrary-length binary, 0x-prefixed hex,
// "0x" for empty.
type Bytes []byte

func (Bytes) ImplementsGraphQLType(name string) bool { return name == "Bytes" }

func (b *Bytes) UnmarshalGraphQL(input interface{}) error {
	s, ok := input.(string)
	if !ok {
		return fmt.Errorf("resolvers: Bytes: unsupported input type %T", input)
	}
	raw, err := hex.DecodeString(trim0x(s))
	if err != nil {
		return fmt.Errorf("resolvers: Bytes: %w", err)
	}
	*b = raw
	return nil
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return []byte(`"0x` + hex.EncodeToString(b) + `"`), nil
}

// Cursor is the opaque base64 pagination token of §4.4, passed through
// verbatim between the pagination package and the wire.
type Cursor string

func (Cursor) ImplementsGraphQLType(name string) bool { return name == "Cursor" }

func (c *Cursor) UnmarshalGraphQL(input interface{}) error {
	s, ok := input.(string)
	if !ok {
		return fmt.Errorf("resolvers: Cursor: unsupported input type %T", input)
	}
	if _, err := base64.RawURLEncoding.DecodeString(s); err != nil {
		return fmt.Errorf("resolvers: Cursor: not valid base64: %w", err)
	}
	*c = Cursor(s)
	return nil
}

func (c Cursor) MarshalJSON() ([]byte, error) {
	return []byte(`"` + string(c) + `"`), nil
}
