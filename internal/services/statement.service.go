package services

import (
	"context"
	"errors"

	"github.com/meridian-cg/coding-portal/internal/model"
	"github.com/meridian-cg/coding-portal/internal/repository"
	"github.com/meridian-cg/coding-portal/pkg/logger"
)

var ErrStatementNotFound = errors.New("statement not found")

type StatementRepository interface {
	Get(ctx context.Context, id int64) (*model.Statement, error)
	List(ctx context.Context) ([]*model.Statement, error)
	Lock(ctx context.Context, id int64, reason string, lockerID int64) error
	Unlock(ctx context.Context, id int64) error
	GetCardholderStatement(ctx context.Context, id int64) (*model.CardholderStatement, error)
	ListCardholderStatements(ctx context.Context, statementID int64) ([]*model.CardholderStatement, error)
}

type StatementService struct {
	repo StatementRepository
}

func NewStatementService(repo StatementRepository) *StatementService {
	return &StatementService{repo: repo}
}

func (s *StatementService) Get(ctx context.Context, id int64) (*model.Statement, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStatementNotFound) {
			return nil, ErrStatementNotFound
		}
		return nil, err
	}
	return st, nil
}

func (s *StatementService) List(ctx context.Context) ([]*model.Statement, error) {
	return s.repo.List(ctx)
}

// Lock freezes coding on every transaction under the statement. A reason is
// mandatory; unlocking never needs one.
func (s *StatementService) Lock(ctx context.Context, id int64, req model.LockRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.repo.Lock(ctx, id, req.Reason, req.LockerID); err != nil {
		if errors.Is(err, repository.ErrStatementNotFound) {
			return ErrStatementNotFound
		}
		return err
	}
	logger.Info("Statement locked", "statement_id", id, "reason", req.Reason)
	return nil
}

func (s *StatementService) Unlock(ctx context.Context, id int64) error {
	if err := s.repo.Unlock(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStatementNotFound) {
			return ErrStatementNotFound
		}
		return err
	}
	logger.Info("Statement unlocked", "statement_id", id)
	return nil
}

func (s *StatementService) GetCardholderStatement(ctx context.Context, id int64) (*model.CardholderStatement, error) {
	cs, err := s.repo.GetCardholderStatement(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStatementNotFound) {
			return nil, ErrStatementNotFound
		}
		return nil, err
	}
	return cs, nil
}

func (s *StatementService) ListCardholderStatements(ctx context.Context, statementID int64) ([]*model.CardholderStatement, error) {
	return s.repo.ListCardholderStatements(ctx, statementID)
}
