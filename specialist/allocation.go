package specialist

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// DefaultSplit is the stock percentage split for today's income when a
// bucket has no explicit priority. Tuned for a delivery worker's cost
// structure: housing first, vehicle running costs, then savings.
var DefaultSplit = map[string]float64{
	"rent":          0.25,
	"emi":           0.15,
	"tax":           0.05,
	"fuel":          0.10,
	"emergency":     0.10,
	"savings":       0.10,
	"discretionary": 0.25,
}

// BucketAllocation splits today's income across buckets. Buckets backing
// at-risk obligations are topped up first; the rest follows the split
// table. Whatever lands in unprotected buckets becomes safe-to-spend.
type BucketAllocation struct{}

func (a *BucketAllocation) Name() string { return BucketAllocator }

func (a *BucketAllocation) Run(ctx context.Context, s *core.State) error {
	income := s.TodayIncome
	s.AllocationPlan = s.AllocationPlan[:0]
	if income <= 0 {
		s.SafeToSpend = SafeToSpend(s)
		return nil
	}

	remaining := income

	// Urgent top-ups first: obligations already scored as at-risk.
	risks := append([]core.ObligationRisk(nil), s.ObligationRisks...)
	sort.Slice(risks, func(i, j int) bool { return risks[i].RiskScore > risks[j].RiskScore })
	for _, r := range risks {
		if remaining <= 0 {
			break
		}
		if r.RiskLevel == "low" || r.ProjectedGap <= 0 {
			continue
		}
		bucket := bucketForObligation(s, r.ObligationID)
		if bucket == "" {
			continue
		}
		topUp := math.Min(remaining, r.ProjectedGap)
		a.allocate(s, bucket, topUp,
			fmt.Sprintf("%s due in %d days with ₹%.0f gap", r.Name, r.DaysUntilDue, r.ProjectedGap))
		remaining -= topUp
	}

	// Percentage split for the rest, skipping buckets already at target.
	if remaining > 0 {
		splitBase := remaining
		for _, name := range splitOrder() {
			share := splitBase * DefaultSplit[name]
			if share <= 0 || remaining <= 0 {
				continue
			}
			if target := bucketTarget(s, name); target > 0 && s.BucketBalances[name] >= target {
				continue // maintenance mode, bucket is full
			}
			amount := math.Min(share, remaining)
			a.allocate(s, name, amount, "daily split")
			remaining -= amount
		}
	}

	// Anything left over is spendable.
	if remaining > 0 {
		a.allocate(s, "discretionary", remaining, "unallocated remainder")
	}

	s.SafeToSpend = SafeToSpend(s)
	return nil
}

func (a *BucketAllocation) allocate(s *core.State, bucket string, amount float64, reason string) {
	amount = math.Round(amount)
	if amount <= 0 {
		return
	}
	s.AdjustBucket(bucket, amount)
	s.AllocationPlan = append(s.AllocationPlan, core.Allocation{
		Bucket: bucket,
		Amount: amount,
		Reason: reason,
	})
}

// splitOrder returns the split table keys in priority order.
func splitOrder() []string {
	return []string{"rent", "emi", "tax", "fuel", "emergency", "savings", "discretionary"}
}

func bucketForObligation(s *core.State, obligationID string) string {
	for _, ob := range s.Obligations {
		if ob.ID == obligationID {
			return ob.BucketName
		}
	}
	return ""
}

func bucketTarget(s *core.State, name string) float64 {
	for _, b := range s.Buckets {
		if b.Name == name {
			return b.Target
		}
	}
	return 0
}

// SafeToSpend sums unprotected bucket balances, the money a
// user can touch without endangering an obligation.
func SafeToSpend(s *core.State) float64 {
	var safe float64
	counted := make(map[string]bool)
	for _, b := range s.Buckets {
		counted[b.Name] = true
		if !b.IsProtected && (b.Kind == "flex" || b.Name == "discretionary" || b.Name == "flex") {
			safe += s.BucketBalances[b.Name]
		}
	}
	// A discretionary balance with no declared bucket still counts.
	if !counted["discretionary"] {
		safe += s.BucketBalances["discretionary"]
	}
	return math.Max(0, safe)
}
