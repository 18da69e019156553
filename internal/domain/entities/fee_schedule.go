package entities

// FeeKind selects how a FeeRule evaluates
type FeeKind string

const (
	FeeKindFlat       FeeKind = "flat"
	FeeKindPercentage FeeKind = "percentage"
	FeeKindTiered     FeeKind = "tiered"
)

// FeePayer decides where the fee comes from
type FeePayer string

const (
	// FeePayerSender charges the fee on top: source is debited amount + fee.
	FeePayerSender FeePayer = "sender"
	// FeePayerMovement takes the fee out of the moved amount: destination gets amount - fee.
	FeePayerMovement FeePayer = "movement"
)

// FeeTier applies Fee to amounts strictly below Below. A zero Below is the open-ended top tier.
type FeeTier struct {
	Below Money `json:"below"`
	Fee   Money `json:"fee"`
}

// FeeRule is one row of the fee schedule
type FeeRule struct {
	Kind  FeeKind   `json:"kind"`
	Flat  Money     `json:"flat,omitempty"`
	Bps   int64     `json:"bps,omitempty"`
	Tiers []FeeTier `json:"tiers,omitempty"`
	Min   Money     `json:"min,omitempty"`
	Max   Money     `json:"max,omitempty"`
	Payer FeePayer  `json:"payer"`
}

// WithdrawalMethodInternal moves money to another wallet in the system and is fee-free.
const WithdrawalMethodInternal = "internal"

// FeeSchedule maps transaction types (and withdrawal methods) to fee rules
type FeeSchedule struct {
	Rules       map[TransactionType]FeeRule `json:"rules"`
	Withdrawals map[string]FeeRule          `json:"withdrawals"`
}

// NoFee is the rule for movements that are never charged
func NoFee() FeeRule {
	return FeeRule{Kind: FeeKindFlat, Payer: FeePayerSender}
}

// DefaultFeeSchedule is the platform's published schedule
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Rules: map[TransactionType]FeeRule{
			TransactionTypeTransfer: {
				Kind: FeeKindTiered,
				Tiers: []FeeTier{
					{Below: Major(1000), Fee: Major(5)},
					{Fee: Major(10)},
				},
				Payer: FeePayerSender,
			},
			TransactionTypeDeposit:      {Kind: FeeKindPercentage, Bps: 250, Payer: FeePayerMovement},
			TransactionTypeContribution: NoFee(),
			TransactionTypeConversion:   {Kind: FeeKindPercentage, Bps: 50, Payer: FeePayerSender},
		},
		Withdrawals: map[string]FeeRule{
			WithdrawalMethodInternal: NoFee(),
			"mobile_money":           {Kind: FeeKindPercentage, Bps: 100, Min: Major(10), Max: Major(1000), Payer: FeePayerSender},
			"bank":                   {Kind: FeeKindFlat, Flat: Major(50), Payer: FeePayerSender},
		},
	}
}
