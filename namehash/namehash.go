// Package namehash maps dotted names to fixed-width node identifiers.
//
//	node("")            = 0x00..00
//	node(label.parent)  = keccak256(node(parent) ++ keccak256(label))
package namehash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Root is the node of the empty name.
var Root = common.Hash{}

// ReverseBase is the name under which reverse records live.
const ReverseBase = "addr.reverse"

var ErrInvalidNode = errors.New("invalid node")

// LabelHash returns keccak256(label).
func LabelHash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// Subnode combines a parent node with a label hash.
func Subnode(parent common.Hash, label common.Hash) common.Hash {
	return crypto.Keccak256Hash(parent.Bytes(), label.Bytes())
}

// NodeOf hashes a path given leaf-first, e.g. {"alice", "web3"}.
func NodeOf(labels []string) common.Hash {
	node := Root
	for i := len(labels) - 1; i >= 0; i-- {
		node = Subnode(node, LabelHash(labels[i]))
	}
	return node
}

// NameHash hashes a dotted name. The empty name maps to Root.
func NameHash(name string) common.Hash {
	if name == "" {
		return Root
	}
	return NodeOf(strings.Split(name, "."))
}

// ReverseLabel is the label a principal's reverse record is stored under:
// lowercase hex of the address without 0x prefix.
func ReverseLabel(addr common.Address) string {
	return hex.EncodeToString(addr.Bytes())
}

// ReverseNode returns the node of <hex(addr)>.addr.reverse.
func ReverseNode(addr common.Address) common.Hash {
	return Subnode(NameHash(ReverseBase), LabelHash(ReverseLabel(addr)))
}

// ParseNode decodes a 0x-prefixed or bare 32-byte hex node.
func ParseNode(s string) (common.Hash, error) {
	clean := strings.TrimPrefix(s, "0x")
	if len(clean) != 64 {
		return common.Hash{}, fmt.Errorf("%w: expected 64 hex characters, got %d", ErrInvalidNode, len(clean))
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	return common.BytesToHash(raw), nil
}
