package service

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

const (
	defaultAccountStatus = "INACTIVE"
	defaultAccountType   = domain.Savings

	// Provisioned IDs carry a random three-digit suffix; a collision with an
	// existing account surfaces as a duplicate-key error and is retried a
	// bounded number of times before failing loudly.
	provisionAttempts = 3
)

type AccountService struct {
	repo   domain.AccountRepository
	rng    *rand.Rand
	logger *slog.Logger
}

// NewAccountService builds the account lifecycle service. The random source
// feeds default-account ID generation and is injected so provisioning stays
// deterministic under test.
func NewAccountService(repo domain.AccountRepository, rng *rand.Rand, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		rng:    rng,
		logger: logger,
	}
}

// AccountInput carries the caller-supplied fields of a create or update
// request. Type arrives as a raw string and is validated against the closed
// variant set.
type AccountInput struct {
	ID         int64
	CustomerID int64
	Balance    decimal.Decimal
	Status     string
	Type       string
}

// CreateAccount validates and persists a caller-supplied account. Checks run
// in a fixed order: ID format, ID/customer prefix, account limit, salary
// uniqueness, type membership. The count-dependent checks and the insert
// share one transaction.
func (s *AccountService) CreateAccount(input AccountInput) (*domain.Account, error) {
	s.logger.Info("Creating account", "account_id", input.ID, "customer_id", input.CustomerID)

	if err := validateAccountID(input.ID, input.CustomerID); err != nil {
		return nil, err
	}

	var created *domain.Account
	err := s.repo.WithTransaction(func(repo domain.AccountRepository) error {
		// Serialize concurrent creations for this customer so both cannot
		// pass the count checks on the same pre-insert state.
		if err := repo.LockCustomer(input.CustomerID); err != nil {
			return err
		}
		if err := validateAccountLimit(repo, input.CustomerID); err != nil {
			return err
		}
		if err := validateSalaryUniqueness(repo, input.CustomerID, input.Type); err != nil {
			return err
		}
		accountType, err := validateAccountType(input.Type)
		if err != nil {
			return err
		}

		account := &domain.Account{
			ID:         input.ID,
			CustomerID: input.CustomerID,
			Balance:    input.Balance,
			Status:     input.Status,
			Type:       accountType,
		}
		if err := repo.CreateAccount(account); err != nil {
			return err
		}

		created = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", created.ID, "customer_id", created.CustomerID)
	return created, nil
}

func (s *AccountService) GetAccountByID(id int64) (*domain.Account, error) {
	return s.repo.GetAccount(id)
}

func (s *AccountService) GetAllAccounts() ([]*domain.Account, error) {
	return s.repo.ListAccounts()
}

// UpdateAccount overwrites balance, status, and type on an existing account.
// ID and customer ID are immutable; a customer_id in the payload is ignored.
// The salary-uniqueness check runs against the stored row's customer and
// permits the account that already is that customer's salary account.
func (s *AccountService) UpdateAccount(id int64, input AccountInput) (*domain.Account, error) {
	s.logger.Info("Updating account", "account_id", id)

	var updated *domain.Account
	err := s.repo.WithTransaction(func(repo domain.AccountRepository) error {
		account, err := repo.GetAccountForUpdate(id)
		if err != nil {
			return err
		}

		accountType, err := validateAccountType(input.Type)
		if err != nil {
			return err
		}
		if accountType == domain.Salary && account.Type != domain.Salary {
			if err := repo.LockCustomer(account.CustomerID); err != nil {
				return err
			}
			if err := validateSalaryUniqueness(repo, account.CustomerID, input.Type); err != nil {
				return err
			}
		}

		account.Balance = input.Balance
		account.Status = input.Status
		account.Type = accountType
		if err := repo.UpdateAccount(account); err != nil {
			return err
		}

		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account updated", "account_id", updated.ID)
	return updated, nil
}

// DeleteAccount removes an existing account. A missing ID fails with
// AccountNotFound before the store's delete is ever invoked.
func (s *AccountService) DeleteAccount(id int64) error {
	s.logger.Info("Deleting account", "account_id", id)

	return s.repo.WithTransaction(func(repo domain.AccountRepository) error {
		if _, err := repo.GetAccountForUpdate(id); err != nil {
			return err
		}
		return repo.DeleteAccount(id)
	})
}

// CreateDefaultAccount provisions the zero-balance SAVINGS account for a
// newly created customer. The ID concatenates the customer ID's digits with
// three random digits; format, limit, and salary checks do not apply to
// system-provisioned accounts.
func (s *AccountService) CreateDefaultAccount(customerID int64) (*domain.Account, error) {
	s.logger.Info("Provisioning default account", "customer_id", customerID)

	// Appending three digits multiplies by 1000; reject customer IDs whose
	// derived account ID cannot fit an int64.
	if customerID <= 0 || customerID > (math.MaxInt64-999)/1000 {
		s.logger.Error("Customer ID out of range for account derivation", "customer_id", customerID)
		return nil, errors.NewAppError(errors.InvalidAccountID, "cannot derive an account ID for this customer")
	}

	var lastErr error
	for attempt := 0; attempt < provisionAttempts; attempt++ {
		suffix := int64(100 + s.rng.Intn(900))
		account := &domain.Account{
			ID:         customerID*1000 + suffix,
			CustomerID: customerID,
			Balance:    decimal.Zero,
			Status:     defaultAccountStatus,
			Type:       defaultAccountType,
		}

		err := s.repo.CreateAccount(account)
		if err == nil {
			s.logger.Info("Default account provisioned",
				"account_id", account.ID, "customer_id", customerID)
			return account, nil
		}

		lastErr = err
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.DuplicateAccount {
			s.logger.Warn("Default account ID collision, retrying",
				"account_id", account.ID, "customer_id", customerID, "attempt", attempt+1)
			continue
		}
		return nil, err
	}

	s.logger.Error("Failed to provision default account", "customer_id", customerID, "error", lastErr)
	return nil, errors.NewAppErrorf(errors.InternalError,
		"could not provision a unique default account after %d attempts", provisionAttempts)
}

// DeleteAllByCustomer purges every account of a deleted customer. Succeeds
// when the customer has none.
func (s *AccountService) DeleteAllByCustomer(customerID int64) error {
	s.logger.Info("Deleting all customer accounts", "customer_id", customerID)
	return s.repo.DeleteAllByCustomer(customerID)
}
