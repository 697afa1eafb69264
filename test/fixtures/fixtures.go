package fixtures

import (
	"time"

	"github.com/meridian-cg/coding-portal/internal/model"
)

var (
	TestStatementOpen = model.Statement{
		ID:          1,
		Month:       3,
		Year:        2024,
		ClosingDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:      model.StatementStatusInProgress,
	}

	TestStatementLocked = model.Statement{
		ID:         2,
		Month:      2,
		Year:       2024,
		Status:     model.StatementStatusCompleted,
		IsLocked:   true,
		LockReason: "month closed",
	}
)

func Int64Ptr(v int64) *int64 {
	return &v
}

func NewTestTransaction(cardholderStatementID int64, amount float64, description string) *model.Transaction {
	return &model.Transaction{
		CardholderStatementID: cardholderStatementID,
		TransactionDate:       time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		PostingDate:           time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:           description,
		Amount:                amount,
		Status:                model.TransactionStatusUncoded,
		CreatedAt:             time.Now(),
	}
}

func GLAccountCoding(companyID, glAccountID int64) model.CodingAssignment {
	return model.CodingAssignment{
		Type:        model.CodingTypeGLAccount,
		CompanyID:   Int64Ptr(companyID),
		GLAccountID: Int64Ptr(glAccountID),
	}
}

func JobCoding(jobID int64, phaseID, costTypeID *int64) model.CodingAssignment {
	return model.CodingAssignment{
		Type:          model.CodingTypeJob,
		JobID:         Int64Ptr(jobID),
		JobPhaseID:    phaseID,
		JobCostTypeID: costTypeID,
	}
}

func EquipmentCoding(equipmentID, costCodeID, costTypeID int64) model.CodingAssignment {
	return model.CodingAssignment{
		Type:                model.CodingTypeEquipment,
		EquipmentID:         Int64Ptr(equipmentID),
		EquipmentCostCodeID: Int64Ptr(costCodeID),
		EquipmentCostTypeID: Int64Ptr(costTypeID),
	}
}

func CodingRequestGLAccount(companyID, glAccountID, coderID int64) model.CodingRequest {
	return model.CodingRequest{
		Assignment: GLAccountCoding(companyID, glAccountID),
		CoderID:    coderID,
	}
}

func SplitRequestTwoWay(first, second float64, coderID int64) model.SplitRequest {
	return model.SplitRequest{
		Lines: []model.SplitLineRequest{
			{Amount: first, Coding: GLAccountCoding(1, 10)},
			{Amount: second, Coding: GLAccountCoding(1, 11)},
		},
		CoderID: coderID,
	}
}

var MerchantDescriptions = []string{
	"REF# 123ABC HILTON HOTEL 03/14/24",
	"SQ *COFFEE SHOP 555-0100",
	"AMZN MKTP US*2K43L9 AMZN.COM/BILL",
	"SHELL OIL 57444 03/02 PURCHASE",
	"UNITED AIR 0162341112222 800-864-83",
}

func FilterByCardholderStatement(id int64) model.TransactionFilter {
	return model.TransactionFilter{
		CardholderStatementID: Int64Ptr(id),
		Limit:                 100,
	}
}

func FilterByStatus(id int64, status model.TransactionStatus) model.TransactionFilter {
	return model.TransactionFilter{
		CardholderStatementID: Int64Ptr(id),
		Status:                &status,
		Limit:                 100,
	}
}

func FilterWithPagination(id int64, limit, skip int) model.TransactionFilter {
	return model.TransactionFilter{
		CardholderStatementID: Int64Ptr(id),
		Limit:                 limit,
		Skip:                  skip,
	}
}

func FilterByDateRange(id int64, from, to time.Time) model.TransactionFilter {
	return model.TransactionFilter{
		CardholderStatementID: Int64Ptr(id),
		DateFrom:              &from,
		DateTo:                &to,
		Limit:                 100,
	}
}
