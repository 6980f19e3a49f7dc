package settings

import "github.com/shopspring/decimal"

// Economic constants shared by every money-moving component.
const (
	ActivationFeeUnits  = 10
	LevelBonusUnits     = 1
	BonusLevels         = 10
	NFTUnitPriceUnits   = 10
	ResaleMultiplier    = 2
	SellerSharePercent  = 40
	NFTsPerBatch        = 4
	MinWithdrawalUnits  = 5
	GenesisBatchCount   = 5
	ReferralCodeLength  = 6
	DefaultPageSize     = 50
	MaxPageSize         = 200
	TopEarnersLimit     = 10
	MarketplaceMaxItems = NFTsPerBatch
)

var (
	ActivationFee = decimal.NewFromInt(ActivationFeeUnits)
	LevelBonus    = decimal.NewFromInt(LevelBonusUnits)
	NFTUnitPrice  = decimal.NewFromInt(NFTUnitPriceUnits)
	ResaleFactor  = decimal.NewFromInt(ResaleMultiplier)
	SellerShare   = decimal.New(SellerSharePercent, -2)
	MinWithdrawal = decimal.NewFromInt(MinWithdrawalUnits)
)
