package tezos

import "github.com/holiman/uint256"

// Account is an implicit account or originated contract as reported by
// the context/contracts sub-resource.
type Account struct {
	Manager           AccountId         `json:"manager"`
	Balance           *uint256.Int      `json:"balance"`
	Spendable         bool              `json:"spendable"`
	DelegateSetable   bool              `json:"delegate_setable"`
	DelegateValue     Option[AccountId] `json:"delegate_value"`
	Counter           int               `json:"counter"`
	Script            MichelsonField    `json:"script"`
	Storage           MichelsonField    `json:"storage"`
	BlockId           BlockHash         `json:"-"`
	BlockLevel        int               `json:"-"`
}

// Reference returns the BlockReference this account snapshot is tagged
// with.
func (a Account) Reference() BlockReference {
	return BlockReference{Hash: a.BlockId, Level: a.BlockLevel}
}
