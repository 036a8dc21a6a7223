package booking

import (
	"fmt"
	"strings"
)

// SplitPayment divides a total in minor units into the platform commission
// and the provider payout. The commission is rounded half up so the two
// parts always sum exactly to the total; the rounding penny goes to the
// platform.
//
// Example: 9999 at 10% gives commission 1000 and payout 8999.
func SplitPayment(totalAmount, commissionPercent int64) (commission, payout int64) {
	commission = (totalAmount*commissionPercent + 50) / 100
	payout = totalAmount - commission
	return commission, payout
}

// formatMinorUnits renders an amount for human-facing notification copy,
// e.g. 8999 GBP -> "89.99 GBP".
func formatMinorUnits(amount int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, strings.ToUpper(currency))
}
