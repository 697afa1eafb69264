package coding

import (
	"math"

	"github.com/meridian-cg/coding-portal/internal/model"
)

const (
	// SumTolerance bounds the allowed drift between line amounts and the
	// original transaction amount.
	SumTolerance = 0.01

	// MinSplitLines is the structural minimum for a split.
	MinSplitLines = 2

	// MaxEvenSplit caps the line count accepted by EvenSplit.
	MaxEvenSplit = 20
)

// SplitLine is one draft allocation line of a split in progress.
type SplitLine struct {
	ID         int                    `json:"id"`
	Amount     float64                `json:"amount"`
	Percentage float64                `json:"percentage"`
	Coding     model.CodingAssignment `json:"coding"`
	Notes      string                 `json:"notes"`
}

// SplitAllocator manages the draft lines of one transaction split. It holds
// local state only; persistence happens on commit through the service layer.
type SplitAllocator struct {
	originalAmount float64
	lines          []*SplitLine
	nextID         int

	// invoked when a line's company changes, so callers can reload the
	// GL account list scoped to the new company
	onCompanyChange func(lineID int, companyID int64)
}

// NewSplitAllocator seeds two equal lines for the transaction. The first
// line inherits the transaction's current coding so splitting off a small
// remainder only needs one line edited.
func NewSplitAllocator(tx *model.Transaction) *SplitAllocator {
	s := &SplitAllocator{originalAmount: tx.Amount}

	half := round2(tx.Amount / 2)
	first := s.newLine(half)
	if tx.Coding != nil {
		first.Coding = *tx.Coding
	}
	second := s.newLine(round2(tx.Amount - half))
	s.lines = []*SplitLine{first, second}
	return s
}

// OnCompanyChange registers the reference-data reload hook.
func (s *SplitAllocator) OnCompanyChange(fn func(lineID int, companyID int64)) {
	s.onCompanyChange = fn
}

// Lines returns a snapshot of the current draft lines.
func (s *SplitAllocator) Lines() []SplitLine {
	out := make([]SplitLine, len(s.lines))
	for i, l := range s.lines {
		out[i] = *l
	}
	return out
}

// OriginalAmount returns the amount being divided.
func (s *SplitAllocator) OriginalAmount() float64 {
	return s.originalAmount
}

// AddLine appends a line holding whatever amount is still unallocated.
// Other lines are not rebalanced.
func (s *SplitAllocator) AddLine() {
	remainder := s.originalAmount - s.sum()
	if remainder < 0 {
		remainder = 0
	}
	s.lines = append(s.lines, s.newLine(round2(remainder)))
}

// RemoveLine deletes the identified line. It is a no-op when only the
// structural minimum of lines remains or the id is unknown.
func (s *SplitAllocator) RemoveLine(id int) {
	if len(s.lines) <= MinSplitLines {
		return
	}
	for i, l := range s.lines {
		if l.ID == id {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}
	}
}

// UpdateAmount sets a line's amount and rederives its percentage.
func (s *SplitAllocator) UpdateAmount(id int, amount float64) {
	l := s.line(id)
	if l == nil {
		return
	}
	l.Amount = round2(amount)
	l.Percentage = s.percentageOf(l.Amount)
}

// UpdatePercentage sets a line's percentage and rederives its amount.
func (s *SplitAllocator) UpdatePercentage(id int, percentage float64) {
	l := s.line(id)
	if l == nil {
		return
	}
	l.Amount = round2(percentage / 100 * s.originalAmount)
	l.Percentage = s.percentageOf(l.Amount)
}

// UpdateCompany moves a line to another company. The GL account selection is
// cleared because accounts are scoped per company, and the reload hook fires
// so the caller can fetch the new company's account list.
func (s *SplitAllocator) UpdateCompany(id int, companyID int64) {
	l := s.line(id)
	if l == nil {
		return
	}
	l.Coding.CompanyID = &companyID
	l.Coding.GLAccountID = nil
	if s.onCompanyChange != nil {
		s.onCompanyChange(id, companyID)
	}
}

// SetCoding replaces a line's coding assignment.
func (s *SplitAllocator) SetCoding(id int, coding model.CodingAssignment) {
	if l := s.line(id); l != nil {
		l.Coding = coding
	}
}

// SetNotes replaces a line's notes.
func (s *SplitAllocator) SetNotes(id int, notes string) {
	if l := s.line(id); l != nil {
		l.Notes = notes
	}
}

// EvenSplit regenerates n equal lines, keeping only the first line's coding.
// Values of n outside [MinSplitLines, MaxEvenSplit] leave the state untouched.
func (s *SplitAllocator) EvenSplit(n int) {
	if n < MinSplitLines || n > MaxEvenSplit {
		return
	}

	var firstCoding model.CodingAssignment
	var firstNotes string
	if len(s.lines) > 0 {
		firstCoding = s.lines[0].Coding
		firstNotes = s.lines[0].Notes
	}

	each := round2(s.originalAmount / float64(n))
	lines := make([]*SplitLine, 0, n)
	for i := 0; i < n; i++ {
		amount := each
		if i == n-1 {
			// last line absorbs the rounding remainder so the sum
			// conserves the original amount exactly
			amount = round2(s.originalAmount - each*float64(n-1))
		}
		lines = append(lines, s.newLine(amount))
	}
	lines[0].Coding = firstCoding
	lines[0].Notes = firstNotes
	s.lines = lines
}

// CopyCodingToAll stamps the first line's coding and notes onto every other
// line. Amounts are untouched.
func (s *SplitAllocator) CopyCodingToAll() {
	if len(s.lines) < 2 {
		return
	}
	for _, l := range s.lines[1:] {
		l.Coding = s.lines[0].Coding
		l.Notes = s.lines[0].Notes
	}
}

// Validate checks the conservation invariant and per-line completeness.
func (s *SplitAllocator) Validate() error {
	if math.Abs(s.sum()-s.originalAmount) > SumTolerance {
		return ErrSplitSumMismatch
	}
	for _, l := range s.lines {
		if !l.Coding.IsComplete() {
			return ErrIncompleteLineCoding
		}
	}
	return nil
}

func (s *SplitAllocator) newLine(amount float64) *SplitLine {
	s.nextID++
	return &SplitLine{
		ID:         s.nextID,
		Amount:     amount,
		Percentage: s.percentageOf(amount),
	}
}

func (s *SplitAllocator) line(id int) *SplitLine {
	for _, l := range s.lines {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (s *SplitAllocator) sum() float64 {
	var total float64
	for _, l := range s.lines {
		total += l.Amount
	}
	return total
}

func (s *SplitAllocator) percentageOf(amount float64) float64 {
	if s.originalAmount == 0 {
		return 0
	}
	return round2(amount / s.originalAmount * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
