package domain

import "fmt"

// AssetType is a closed union over the asset shapes an order leg can
// carry. The union is sealed by the unexported marker method so that a
// new variant cannot appear without every switch over the union being
// revisited; per-chain wire shapes are mapped onto it by the chain
// clients.
type AssetType interface {
	assetType()
	// CurrencyID returns the currency key for this asset when it is a
	// payment-side asset, or "" for NFTs.
	CurrencyID() string
}

// NativeAssetType is the chain's native currency (ETH, MATIC, FLOW, ...).
type NativeAssetType struct {
	Blockchain Blockchain
}

// TokenAssetType is a fungible token (ERC20 and per-chain equivalents).
type TokenAssetType struct {
	Blockchain Blockchain
	Contract   string
}

// NFTAssetType is a non-fungible token leg.
type NFTAssetType struct {
	Blockchain Blockchain
	Contract   string
	TokenID    string
}

func (NativeAssetType) assetType() {}
func (TokenAssetType) assetType()  {}
func (NFTAssetType) assetType()    {}

func (a NativeAssetType) CurrencyID() string {
	return fmt.Sprintf("%s:NATIVE", a.Blockchain)
}

func (a TokenAssetType) CurrencyID() string {
	return fmt.Sprintf("%s:%s", a.Blockchain, a.Contract)
}

func (NFTAssetType) CurrencyID() string { return "" }

// Asset is one order leg: an asset type plus an amount.
type Asset struct {
	Type  AssetType
	Value float64
}
