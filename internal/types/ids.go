// Package types holds the domain model shared by the indexer and the API:
// the entities of §3 of the specification, expressed as plain Go structs
// rather than node wire types or database rows.
package types

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

// AccountIndex is the dense primary key of an account (§3 Account).
type AccountIndex uint64

// BlockHeight is the dense primary key of a block (§3 Block).
type BlockHeight uint64

// TransactionIndex is the dense global primary key of a transaction.
type TransactionIndex uint64

// BakerID identifies a validator; equal to the account index of its owner.
type BakerID uint64

// ContractAddress is the (index, sub-index) pair that keys a contract
// instance (§3 Contract instance).
type ContractAddress struct {
	Index    uint64
	SubIndex uint64
}

func (c ContractAddress) String() string {
	return fmt.Sprintf("<%d,%d>", c.Index, c.SubIndex)
}

// TokenIndex is the dense primary key of a CIS-2 token (§3 CIS-2 token).
type TokenIndex uint64

// IDTransaction encodes the stable GraphQL node ID for a transaction as
// "{block}:{index}" per §6.
func IDTransaction(block BlockHeight, index TransactionIndex) string {
	return fmt.Sprintf("%d:%d", block, index)
}

// CanonicalAddress is the 32-byte representative of an account; every
// alias of an account maps to the same CanonicalAddress (§3 Account,
// Glossary).
type CanonicalAddress [32]byte

// AccountAddress is the Base58Check textual form of an account address,
// possibly one of several aliases of the same CanonicalAddress.
type AccountAddress string

// accountAddressVersion is the version byte Concordium prefixes every
// account address payload with before checksumming.
const accountAddressVersion = byte(1)

// EncodeAccountAddress renders a canonical address in its Base58Check
// textual form: version byte || canonical address, followed by the first
// four bytes of a double-SHA256 checksum, all base58-encoded (§3 Account:
// "canonical 32-byte address ... plus its Base58Check form").
func EncodeAccountAddress(c CanonicalAddress) AccountAddress {
	payload := make([]byte, 0, 1+len(c))
	payload = append(payload, accountAddressVersion)
	payload = append(payload, c[:]...)

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])

	full := append(payload, second[:4]...)
	return AccountAddress(base58.Encode(full))
}

// ModuleRef is the hash identifying a smart-contract module.
type ModuleRef [32]byte

func (m ModuleRef) String() string {
	return fmt.Sprintf("%x", [32]byte(m))
}

// BlockHash is the 256-bit hash identifying a block.
type BlockHash [32]byte

func (h BlockHash) String() string {
	return fmt.Sprintf("%x", [32]byte(h))
}

// DecimalString renders a hexutil.Big as a base-10 literal, the form
// every amount column expects; hexutil.Big's own String/MarshalText
// methods produce hex, which is the wire/JSON form, not the storage form.
func DecimalString(b hexutil.Big) string {
	v := big.Int(b)
	return v.String()
}
