package domain

import (
	"fmt"
	"strings"

	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
)

// Composite identifiers are immutable value types; equality is
// structural. The canonical string form is
// "<BLOCKCHAIN>:<local parts joined by ':'>" and is what gets persisted,
// published in events and used as cache keys.

type ItemID struct {
	Blockchain Blockchain
	Contract   string
	TokenID    string
}

func (id ItemID) String() string {
	return fmt.Sprintf("%s:%s:%s", id.Blockchain, id.Contract, id.TokenID)
}

func ParseItemID(raw string) (ItemID, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return ItemID{}, fmt.Errorf("parse item id %q: %w", raw, apperr.ErrInvalidArgument)
	}
	blockchain, err := ParseBlockchain(parts[0])
	if err != nil {
		return ItemID{}, err
	}
	if parts[1] == "" || parts[2] == "" {
		return ItemID{}, fmt.Errorf("parse item id %q: %w", raw, apperr.ErrInvalidArgument)
	}
	return ItemID{Blockchain: blockchain, Contract: parts[1], TokenID: parts[2]}, nil
}

type OwnershipID struct {
	Blockchain Blockchain
	Contract   string
	TokenID    string
	Owner      string
}

func (id OwnershipID) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", id.Blockchain, id.Contract, id.TokenID, id.Owner)
}

func (id OwnershipID) ItemID() ItemID {
	return ItemID{Blockchain: id.Blockchain, Contract: id.Contract, TokenID: id.TokenID}
}

func ParseOwnershipID(raw string) (OwnershipID, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 4 {
		return OwnershipID{}, fmt.Errorf("parse ownership id %q: %w", raw, apperr.ErrInvalidArgument)
	}
	blockchain, err := ParseBlockchain(parts[0])
	if err != nil {
		return OwnershipID{}, err
	}
	if parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return OwnershipID{}, fmt.Errorf("parse ownership id %q: %w", raw, apperr.ErrInvalidArgument)
	}
	return OwnershipID{Blockchain: blockchain, Contract: parts[1], TokenID: parts[2], Owner: parts[3]}, nil
}

type CollectionID struct {
	Blockchain Blockchain
	Address    string
}

func (id CollectionID) String() string {
	return fmt.Sprintf("%s:%s", id.Blockchain, id.Address)
}

func ParseCollectionID(raw string) (CollectionID, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return CollectionID{}, fmt.Errorf("parse collection id %q: %w", raw, apperr.ErrInvalidArgument)
	}
	blockchain, err := ParseBlockchain(parts[0])
	if err != nil {
		return CollectionID{}, err
	}
	return CollectionID{Blockchain: blockchain, Address: parts[1]}, nil
}

type OrderID struct {
	Blockchain Blockchain
	Value      string
}

func (id OrderID) String() string {
	return fmt.Sprintf("%s:%s", id.Blockchain, id.Value)
}

func ParseOrderID(raw string) (OrderID, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return OrderID{}, fmt.Errorf("parse order id %q: %w", raw, apperr.ErrInvalidArgument)
	}
	blockchain, err := ParseBlockchain(parts[0])
	if err != nil {
		return OrderID{}, err
	}
	return OrderID{Blockchain: blockchain, Value: parts[1]}, nil
}
