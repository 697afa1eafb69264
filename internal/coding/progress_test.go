package coding

import (
	"testing"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestComputeProgress_FromTransactions(t *testing.T) {
	txs := []*model.Transaction{
		{Amount: 100, Status: model.TransactionStatusCoded},
		{Amount: 50, Status: model.TransactionStatusUncoded},
		{Amount: 25, Status: model.TransactionStatusReviewed},
		{Amount: 10, Status: model.TransactionStatusRejected},
	}

	p := ComputeProgress(txs, nil)
	assert.Equal(t, int64(4), p.TotalCount)
	assert.Equal(t, int64(2), p.CodedCount)
	assert.Equal(t, 185.0, p.TotalAmount)
	assert.Equal(t, 125.0, p.CodedAmount)
	assert.Equal(t, 50.0, p.Percentage)
}

func TestComputeProgress_ServerTotalsTrusted(t *testing.T) {
	// one loaded page, but the server reports the full filtered set
	txs := []*model.Transaction{
		{Amount: 100, Status: model.TransactionStatusCoded},
	}
	totals := &model.CodingTotals{
		TotalCount:  200,
		CodedCount:  60,
		TotalAmount: 9000,
		CodedAmount: 2500,
	}

	p := ComputeProgress(txs, totals)
	assert.Equal(t, int64(200), p.TotalCount)
	assert.Equal(t, int64(60), p.CodedCount)
	assert.Equal(t, 9000.0, p.TotalAmount)
	assert.Equal(t, 2500.0, p.CodedAmount)
	assert.Equal(t, 30.0, p.Percentage)
}

func TestComputeProgress_EmptySet(t *testing.T) {
	p := ComputeProgress(nil, nil)
	assert.Equal(t, 0.0, p.Percentage)
	assert.Equal(t, int64(0), p.TotalCount)

	p = ComputeProgress(nil, &model.CodingTotals{})
	assert.Equal(t, 0.0, p.Percentage)
}
