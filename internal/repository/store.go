package repository

import (
	"database/sql"
	"log/slog"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

// SQLExecutor is the query surface shared by sql.DB and sql.Tx.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

var _ SQLExecutor = (*sql.DB)(nil)
var _ SQLExecutor = (*sql.Tx)(nil)

// Store provides repository access with transaction support.
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Account returns an AccountRepository bound to the current executor.
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. Only a Store
// built on sql.DB can begin one; a nested call fails.
func (s *Store) WithTransaction(fn func(*Store) error) error {
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to begin transaction").WithDetails(err.Error())
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
