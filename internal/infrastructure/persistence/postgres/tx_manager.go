package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/threatsmith/threatsmith/internal/domain/repository"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// TxManager implements TransactionManager on gorm. The merge engine uses it
// to hold one transaction across a whole merge; any error returned by fn
// rolls back every relational write in that merge.
type TxManager struct {
	db  *gorm.DB
	log logger.Logger
}

// NewTxManager creates a transaction manager.
func NewTxManager(db *gorm.DB, log logger.Logger) repository.TransactionManager {
	return &TxManager{db: db, log: log}
}

func (m *TxManager) InTransaction(ctx context.Context, fn func(repos repository.TxRepositories) error) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.TxRepositories{
			ThreatModels: NewThreatModelRepository(tx, m.log),
			Threats:      NewThreatRepository(tx, m.log),
			Safeguards:   NewSafeguardRepository(tx, m.log),
		})
	})
	if err != nil {
		// Preserve typed errors raised inside the transaction; wrap raw
		// driver errors from begin/commit.
		if _, ok := apperrors.AsAppError(err); ok {
			return err
		}
		return apperrors.ErrBackend("transaction failed", err)
	}
	return nil
}
