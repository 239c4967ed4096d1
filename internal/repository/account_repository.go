package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

// salaryUniqueIndex is the partial unique index backstopping the
// one-salary-account-per-customer invariant.
const salaryUniqueIndex = "uniq_accounts_customer_salary"

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

// LockCustomer takes a transaction-scoped advisory lock on the customer ID.
// Row locks cannot serialize the cap and salary checks: an empty count locks
// nothing, and a committed concurrent insert is a phantom the re-read count
// does not see. The advisory lock makes concurrent check-then-write
// sequences for one customer queue behind each other; it releases at commit
// or rollback.
func (r *accountRepository) LockCustomer(customerID int64) error {
	if _, err := r.db.Exec(`SELECT pg_advisory_xact_lock($1)`, customerID); err != nil {
		r.logger.Error("Failed to lock customer", "customer_id", customerID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to lock customer").WithDetails(err.Error())
	}
	return nil
}

func (r *accountRepository) CreateAccount(account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, customer_id, balance, status, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	_, err := r.db.Exec(
		query,
		account.ID,
		account.CustomerID,
		account.Balance.String(),
		account.Status,
		account.Type.String(),
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				if pqErr.Constraint == salaryUniqueIndex {
					r.logger.Warn("Second salary account rejected by index",
						"account_id", account.ID, "customer_id", account.CustomerID)
					return errors.ErrSalaryAccountExists
				}
				r.logger.Warn("Duplicate account creation attempt", "account_id", account.ID)
				return errors.ErrDuplicateAccount
			}
		}
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now

	r.logger.Info("Account created successfully", "account_id", account.ID, "customer_id", account.CustomerID)
	return nil
}

func (r *accountRepository) GetAccount(id int64) (*domain.Account, error) {
	query := `
		SELECT id, customer_id, balance, status, type, created_at, updated_at
		FROM accounts WHERE id = $1
	`

	return r.scanAccount(query, id)
}

func (r *accountRepository) GetAccountForUpdate(id int64) (*domain.Account, error) {
	query := `
		SELECT id, customer_id, balance, status, type, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`

	return r.scanAccount(query, id)
}

func (r *accountRepository) scanAccount(query string, id int64) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string
	var typeStr string

	err := r.db.QueryRow(query, id).Scan(
		&account.ID,
		&account.CustomerID,
		&balanceStr,
		&account.Status,
		&typeStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_id", id)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "account_id", id, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}

	account.Balance = balance
	account.Type = domain.AccountType(typeStr)
	return &account, nil
}

func (r *accountRepository) ListAccounts() ([]*domain.Account, error) {
	query := `
		SELECT id, customer_id, balance, status, type, created_at, updated_at
		FROM accounts
	`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		var account domain.Account
		var balanceStr string
		var typeStr string

		if err := rows.Scan(
			&account.ID,
			&account.CustomerID,
			&balanceStr,
			&account.Status,
			&typeStr,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan account row", "error", err)
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account").WithDetails(err.Error())
		}

		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
		}

		account.Balance = balance
		account.Type = domain.AccountType(typeStr)
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to iterate accounts").WithDetails(err.Error())
	}

	return accounts, nil
}

// CountByCustomer counts a customer's accounts. Callers enforcing a limit on
// the result must hold the customer's advisory lock.
func (r *accountRepository) CountByCustomer(customerID int64) (int64, error) {
	query := `SELECT count(*) FROM accounts WHERE customer_id = $1`

	var count int64
	if err := r.db.QueryRow(query, customerID).Scan(&count); err != nil {
		r.logger.Error("Failed to count accounts", "customer_id", customerID, "error", err)
		return 0, errors.NewAppError(errors.InternalError, "failed to count accounts").WithDetails(err.Error())
	}

	return count, nil
}

func (r *accountRepository) CountByCustomerAndType(customerID int64, accountType domain.AccountType) (int64, error) {
	query := `SELECT count(*) FROM accounts WHERE customer_id = $1 AND type = $2`

	var count int64
	if err := r.db.QueryRow(query, customerID, accountType.String()).Scan(&count); err != nil {
		r.logger.Error("Failed to count accounts by type",
			"customer_id", customerID, "type", accountType, "error", err)
		return 0, errors.NewAppError(errors.InternalError, "failed to count accounts by type").WithDetails(err.Error())
	}

	return count, nil
}

func (r *accountRepository) UpdateAccount(account *domain.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, status = $2, type = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(
		query,
		account.Balance.String(),
		account.Status,
		account.Type.String(),
		time.Now(),
		account.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" && pqErr.Constraint == salaryUniqueIndex {
			r.logger.Warn("Second salary account rejected by index",
				"account_id", account.ID, "customer_id", account.CustomerID)
			return errors.ErrSalaryAccountExists
		}
		r.logger.Error("Failed to update account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", account.ID)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account updated", "account_id", account.ID)
	return nil
}

func (r *accountRepository) DeleteAccount(id int64) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete account").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to delete", "account_id", id)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account deleted", "account_id", id)
	return nil
}

// DeleteAllByCustomer removes every account owned by the customer. Matching
// zero rows is not an error.
func (r *accountRepository) DeleteAllByCustomer(customerID int64) error {
	query := `DELETE FROM accounts WHERE customer_id = $1`

	result, err := r.db.Exec(query, customerID)
	if err != nil {
		r.logger.Error("Failed to delete customer accounts", "customer_id", customerID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete customer accounts").WithDetails(err.Error())
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.Info("Customer accounts deleted", "customer_id", customerID, "count", rowsAffected)
	return nil
}

// WithTransaction satisfies domain.AccountRepository so the service can run
// check-then-write sequences against a single transactional executor.
func (r *accountRepository) WithTransaction(fn func(repo domain.AccountRepository) error) error {
	db, ok := r.db.(*sql.DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	store := NewStore(db, r.logger)
	return store.WithTransaction(func(txStore *Store) error {
		return fn(txStore.Account())
	})
}
