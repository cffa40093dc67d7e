// Package commission holds the pure payout arithmetic: no storage, no clocks.
package commission

import (
	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Eligibility reports whether recipientID may receive matrix payouts.
// A nil Eligibility treats everybody as eligible.
type Eligibility func(recipientID string) (bool, error)

type SkipReason string

const (
	SkipZeroAmount SkipReason = "zero_amount"
	SkipIneligible SkipReason = "ineligible"
)

// Skip is a level that produced no payout.
type Skip struct {
	RecipientID string
	Level       int
	Reason      SkipReason
}

// LevelAmount returns the payout for the 0-based level index.
func LevelAmount(base decimal.Decimal, table domain.LevelTable, index int) (amount, rate decimal.Decimal) {
	value := table.Values[index]
	if table.Mode == domain.LevelPercent {
		return domain.PercentOf(base, value), value
	}
	return domain.RoundMoney(value), decimal.Zero
}

// ComputeLevelPayouts pairs ancestors[i] with level i+1 of the table.
// It stops at whichever of the two runs out first. Levels whose amount is
// zero or whose recipient is ineligible are reported as skips and pay nothing.
func ComputeLevelPayouts(
	base decimal.Decimal,
	table domain.LevelTable,
	ancestors []string,
	eligible Eligibility,
) ([]domain.PayoutInstruction, []Skip, error) {
	var (
		payouts []domain.PayoutInstruction
		skips   []Skip
	)
	for i, recipient := range ancestors {
		if i >= len(table.Values) {
			break
		}
		level := i + 1
		amount, rate := LevelAmount(base, table, i)
		if !amount.IsPositive() {
			skips = append(skips, Skip{RecipientID: recipient, Level: level, Reason: SkipZeroAmount})
			continue
		}
		if eligible != nil {
			ok, err := eligible(recipient)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				skips = append(skips, Skip{RecipientID: recipient, Level: level, Reason: SkipIneligible})
				continue
			}
		}
		payouts = append(payouts, domain.PayoutInstruction{
			RecipientID: recipient,
			Level:       level,
			Amount:      amount,
			Mode:        table.Mode,
			Rate:        rate,
		})
	}
	return payouts, skips, nil
}

// Total sums the payout amounts.
func Total(payouts []domain.PayoutInstruction) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payouts {
		total = total.Add(p.Amount)
	}
	return total
}

// BonusInstruction is a direct or self bonus resolved for one activation.
type BonusInstruction struct {
	RecipientID string
	Type        domain.EntryType
	Amount      decimal.Decimal
	Withhold    bool
}

// ResolveBonuses returns the direct bonus for the user's sponsor and the self
// bonus for the user. A bonus whose amount truncates to zero is left out, and
// so is the direct bonus of a user without a sponsor.
func ResolveBonuses(cfg *domain.CommissionConfig, pkg domain.PackageConfig, user *domain.Account) []BonusInstruction {
	var out []BonusInstruction
	direct := domain.RoundMoney(cfg.DirectBonusFor(pkg.Key))
	if direct.IsPositive() && user.SponsorID != nil && *user.SponsorID != user.UserID {
		out = append(out, BonusInstruction{
			RecipientID: *user.SponsorID,
			Type:        domain.EntryDirectBonus,
			Amount:      direct,
		})
	}
	self := domain.RoundMoney(cfg.SelfBonusFor(pkg.Key))
	if self.IsPositive() {
		out = append(out, BonusInstruction{
			RecipientID: user.UserID,
			Type:        domain.EntrySelfBonus,
			Amount:      self,
			Withhold:    cfg.WithholdSelfBonus,
		})
	}
	return out
}
