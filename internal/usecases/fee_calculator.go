package usecases

import (
	"fmt"
	"math"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
)

// FeeCalculator evaluates the fee schedule. It holds no state besides the table.
type FeeCalculator struct {
	schedule entities.FeeSchedule
}

// NewFeeCalculator creates a calculator for schedule
func NewFeeCalculator(schedule entities.FeeSchedule) *FeeCalculator {
	return &FeeCalculator{schedule: schedule}
}

// ComputeFee returns the fee charged for moving amount as txType
func (c *FeeCalculator) ComputeFee(txType entities.TransactionType, amount entities.Money) (entities.Money, error) {
	rule, err := c.Rule(txType)
	if err != nil {
		return 0, err
	}
	return evaluate(rule, amount)
}

// ComputeWithdrawalFee returns the fee for leaving the system through method
func (c *FeeCalculator) ComputeWithdrawalFee(method string, amount entities.Money) (entities.Money, error) {
	rule, err := c.WithdrawalRule(method)
	if err != nil {
		return 0, err
	}
	return evaluate(rule, amount)
}

// Rule returns the schedule row for txType
func (c *FeeCalculator) Rule(txType entities.TransactionType) (entities.FeeRule, error) {
	if rule, ok := c.schedule.Rules[txType]; ok {
		return rule, nil
	}
	if txType == entities.TransactionTypeWithdrawal {
		return c.WithdrawalRule(entities.WithdrawalMethodInternal)
	}
	if !txType.Valid() {
		return entities.FeeRule{}, fmt.Errorf("%w: unknown transaction type %q", domainerrors.ErrInvalidInput, txType)
	}
	return entities.NoFee(), nil
}

// WithdrawalRule returns the schedule row for a withdrawal method
func (c *FeeCalculator) WithdrawalRule(method string) (entities.FeeRule, error) {
	rule, ok := c.schedule.Withdrawals[method]
	if !ok {
		return entities.FeeRule{}, fmt.Errorf("%w: unsupported withdrawal method %q", domainerrors.ErrInvalidInput, method)
	}
	return rule, nil
}

func evaluate(rule entities.FeeRule, amount entities.Money) (entities.Money, error) {
	if !amount.IsPositive() {
		return 0, domainerrors.ErrInvalidAmount
	}

	var fee entities.Money
	switch rule.Kind {
	case entities.FeeKindFlat, "":
		fee = rule.Flat
	case entities.FeeKindPercentage:
		fee = amount.Percent(rule.Bps)
	case entities.FeeKindTiered:
		for _, tier := range rule.Tiers {
			if tier.Below == 0 || amount < tier.Below {
				fee = tier.Fee
				break
			}
		}
	default:
		return 0, fmt.Errorf("%w: unknown fee kind %q", domainerrors.ErrInvalidInput, rule.Kind)
	}

	if rule.Min > 0 && fee < rule.Min {
		fee = rule.Min
	}
	if rule.Max > 0 && fee > rule.Max {
		fee = rule.Max
	}
	// a fee taken out of the movement can never exceed it
	if rule.Payer == entities.FeePayerMovement && fee > amount {
		fee = amount
	}
	return fee, nil
}

// split returns what leaves the source and what reaches the destination.
// An amount whose debit would not fit in int64 is rejected.
func split(rule entities.FeeRule, amount, fee entities.Money) (debit, credit entities.Money, err error) {
	if amount <= 0 || fee < 0 {
		return 0, 0, domainerrors.ErrInvalidAmount
	}
	if rule.Payer == entities.FeePayerMovement {
		return amount, amount - fee, nil
	}
	if amount > entities.Money(math.MaxInt64)-fee {
		return 0, 0, domainerrors.ErrInvalidAmount
	}
	return amount + fee, amount, nil
}
