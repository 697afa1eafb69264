package coding

import (
	"math"
	"testing"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glCoding(company, account int64) model.CodingAssignment {
	return model.CodingAssignment{
		Type:        model.CodingTypeGLAccount,
		CompanyID:   &company,
		GLAccountID: &account,
	}
}

func newTestTransaction(amount float64) *model.Transaction {
	return &model.Transaction{ID: 42, Amount: amount, Status: model.TransactionStatusUncoded}
}

func TestSplitAllocator_InitializeSeedsTwoHalves(t *testing.T) {
	tx := newTestTransaction(100)
	coding := glCoding(1, 5000)
	tx.Coding = &coding

	s := NewSplitAllocator(tx)
	lines := s.Lines()
	require.Len(t, lines, 2)

	assert.Equal(t, 50.0, lines[0].Amount)
	assert.Equal(t, 50.0, lines[1].Amount)
	assert.Equal(t, 50.0, lines[0].Percentage)

	// line 1 inherits the existing coding, line 2 starts empty
	assert.Equal(t, model.CodingTypeGLAccount, lines[0].Coding.Type)
	assert.Empty(t, lines[1].Coding.Type)
}

func TestSplitAllocator_EvenSplitThreeWay(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(300))
	s.EvenSplit(3)

	lines := s.Lines()
	require.Len(t, lines, 3)

	var sum float64
	for _, l := range lines {
		assert.Equal(t, 100.0, l.Amount)
		assert.Equal(t, 33.33, l.Percentage)
		sum += l.Amount
	}
	assert.Equal(t, 300.0, sum)
}

func TestSplitAllocator_EvenSplitKeepsFirstLineCodingOnly(t *testing.T) {
	tx := newTestTransaction(90)
	coding := glCoding(1, 5000)
	tx.Coding = &coding

	s := NewSplitAllocator(tx)
	s.SetCoding(s.Lines()[1].ID, glCoding(2, 6000))
	s.EvenSplit(3)

	lines := s.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, model.CodingTypeGLAccount, lines[0].Coding.Type)
	assert.Empty(t, lines[1].Coding.Type)
	assert.Empty(t, lines[2].Coding.Type)
}

func TestSplitAllocator_EvenSplitOutOfRangeIsNoOp(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(100))

	s.EvenSplit(1)
	assert.Len(t, s.Lines(), 2)

	s.EvenSplit(21)
	assert.Len(t, s.Lines(), 2)

	s.EvenSplit(20)
	assert.Len(t, s.Lines(), 20)
}

func TestSplitAllocator_EvenSplitConservesAwkwardAmounts(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(100))
	s.EvenSplit(3)

	var sum float64
	for _, l := range s.Lines() {
		sum += l.Amount
	}
	assert.InDelta(t, 100.0, sum, SumTolerance)
}

func TestSplitAllocator_AddLineTakesRemainder(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(100))
	lines := s.Lines()
	s.UpdateAmount(lines[0].ID, 30)
	s.UpdateAmount(lines[1].ID, 30)

	s.AddLine()
	lines = s.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, 40.0, lines[2].Amount)
	assert.Equal(t, 40.0, lines[2].Percentage)

	// over-allocated splits never seed a negative remainder
	s.UpdateAmount(lines[2].ID, 80)
	s.AddLine()
	lines = s.Lines()
	require.Len(t, lines, 4)
	assert.Equal(t, 0.0, lines[3].Amount)
}

func TestSplitAllocator_RemoveLineRefusesAtMinimum(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(100))
	lines := s.Lines()
	require.Len(t, lines, 2)

	s.RemoveLine(lines[0].ID)
	assert.Len(t, s.Lines(), 2)

	s.AddLine()
	s.RemoveLine(lines[0].ID)
	assert.Len(t, s.Lines(), 2)
}

func TestSplitAllocator_PercentageAmountRoundTrip(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(257.89))
	id := s.Lines()[0].ID

	for _, x := range []float64{0, 0.01, 33.33, 100.00, 128.94, 257.89} {
		s.UpdateAmount(id, x)
		pct := s.Lines()[0].Percentage
		s.UpdatePercentage(id, pct)
		assert.LessOrEqual(t, math.Abs(s.Lines()[0].Amount-x), 0.01, "amount %v", x)
	}
}

func TestSplitAllocator_UpdateCompanyClearsGLAndFiresReload(t *testing.T) {
	tx := newTestTransaction(100)
	coding := glCoding(1, 5000)
	tx.Coding = &coding

	s := NewSplitAllocator(tx)
	var reloadedLine int
	var reloadedCompany int64
	s.OnCompanyChange(func(lineID int, companyID int64) {
		reloadedLine = lineID
		reloadedCompany = companyID
	})

	id := s.Lines()[0].ID
	s.UpdateCompany(id, 7)

	line := s.Lines()[0]
	require.NotNil(t, line.Coding.CompanyID)
	assert.Equal(t, int64(7), *line.Coding.CompanyID)
	assert.Nil(t, line.Coding.GLAccountID)
	assert.Equal(t, id, reloadedLine)
	assert.Equal(t, int64(7), reloadedCompany)
}

func TestSplitAllocator_CopyCodingToAll(t *testing.T) {
	tx := newTestTransaction(100)
	coding := glCoding(1, 5000)
	tx.Coding = &coding

	s := NewSplitAllocator(tx)
	s.AddLine()
	s.SetNotes(s.Lines()[0].ID, "fuel surcharge")
	s.CopyCodingToAll()

	for _, l := range s.Lines() {
		assert.Equal(t, model.CodingTypeGLAccount, l.Coding.Type)
		assert.Equal(t, "fuel surcharge", l.Notes)
	}
}

func TestSplitAllocator_ValidateSumMismatch(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(100))
	lines := s.Lines()
	s.SetCoding(lines[0].ID, glCoding(1, 5000))
	s.SetCoding(lines[1].ID, glCoding(1, 5001))

	s.UpdateAmount(lines[0].ID, 10)
	assert.ErrorIs(t, s.Validate(), ErrSplitSumMismatch)

	s.UpdateAmount(lines[0].ID, 50)
	assert.NoError(t, s.Validate())
}

func TestSplitAllocator_ValidateIncompleteLine(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(100))
	lines := s.Lines()
	s.SetCoding(lines[0].ID, glCoding(1, 5000))

	// second line has no coding at all
	assert.ErrorIs(t, s.Validate(), ErrIncompleteLineCoding)

	// equipment without a cost code is still incomplete
	equipID := int64(77)
	s.SetCoding(lines[1].ID, model.CodingAssignment{
		Type:        model.CodingTypeEquipment,
		EquipmentID: &equipID,
	})
	assert.ErrorIs(t, s.Validate(), ErrIncompleteLineCoding)

	codeID, typeID := int64(1), int64(2)
	s.SetCoding(lines[1].ID, model.CodingAssignment{
		Type:                model.CodingTypeEquipment,
		EquipmentID:         &equipID,
		EquipmentCostCodeID: &codeID,
		EquipmentCostTypeID: &typeID,
	})
	assert.NoError(t, s.Validate())
}

func TestSplitAllocator_ValidateWithinTolerance(t *testing.T) {
	s := NewSplitAllocator(newTestTransaction(100))
	lines := s.Lines()
	s.SetCoding(lines[0].ID, glCoding(1, 5000))
	s.SetCoding(lines[1].ID, glCoding(1, 5001))

	s.UpdateAmount(lines[0].ID, 50.00)
	s.UpdateAmount(lines[1].ID, 49.99)
	assert.NoError(t, s.Validate())

	s.UpdateAmount(lines[1].ID, 49.98)
	assert.ErrorIs(t, s.Validate(), ErrSplitSumMismatch)
}
