package domain

import (
	"fmt"
	"strings"

	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
)

// Blockchain identifies one backend partition. The set is finite and
// known at startup; each blockchain has its own indexer services,
// pagination and failure domain.
type Blockchain string

const (
	BlockchainEthereum Blockchain = "ETHEREUM"
	BlockchainPolygon  Blockchain = "POLYGON"
	BlockchainFlow     Blockchain = "FLOW"
	BlockchainTezos    Blockchain = "TEZOS"
	BlockchainSolana   Blockchain = "SOLANA"
)

// AllBlockchains lists every blockchain the codebase knows about, in the
// canonical order used for deterministic iteration.
var AllBlockchains = []Blockchain{
	BlockchainEthereum,
	BlockchainPolygon,
	BlockchainFlow,
	BlockchainTezos,
	BlockchainSolana,
}

func (b Blockchain) String() string { return string(b) }

func ParseBlockchain(raw string) (Blockchain, error) {
	candidate := Blockchain(strings.ToUpper(strings.TrimSpace(raw)))
	for _, b := range AllBlockchains {
		if b == candidate {
			return b, nil
		}
	}
	return "", fmt.Errorf("parse blockchain %q: %w", raw, apperr.ErrBlockchainNotSupported)
}

func ParseBlockchains(raw []string) ([]Blockchain, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Blockchain, 0, len(raw))
	for _, r := range raw {
		b, err := ParseBlockchain(r)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
