package coding

import "github.com/meridian-cg/coding-portal/internal/model"

// Progress summarizes coding coverage for a set of transactions.
type Progress struct {
	TotalCount  int64   `json:"total_count"`
	CodedCount  int64   `json:"coded_count"`
	TotalAmount float64 `json:"total_amount"`
	CodedAmount float64 `json:"coded_amount"`
	Percentage  float64 `json:"percentage"`
}

// ComputeProgress aggregates coded counts and amounts. When serverTotals is
// non-nil it is trusted as the authority for the full filtered set; the
// local transactions only cover the loaded page and would undercount.
func ComputeProgress(transactions []*model.Transaction, serverTotals *model.CodingTotals) Progress {
	var p Progress
	if serverTotals != nil {
		p.TotalCount = serverTotals.TotalCount
		p.CodedCount = serverTotals.CodedCount
		p.TotalAmount = serverTotals.TotalAmount
		p.CodedAmount = serverTotals.CodedAmount
	} else {
		for _, tx := range transactions {
			p.TotalCount++
			p.TotalAmount += tx.Amount
			if tx.Status.IsCoded() {
				p.CodedCount++
				p.CodedAmount += tx.Amount
			}
		}
	}
	if p.TotalCount > 0 {
		p.Percentage = float64(p.CodedCount) / float64(p.TotalCount) * 100
	}
	return p
}
