package service

import (
	"strconv"
	"strings"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

const (
	accountIDDigits        = 10
	maxAccountsPerCustomer = 10
)

// validateAccountID enforces the identifier format rules: the account ID's
// minimal decimal rendering is exactly 10 digits, and the customer ID's
// rendering is a literal prefix of it. An ID below 1000000000 renders shorter
// than 10 characters and always fails.
func validateAccountID(accountID, customerID int64) error {
	accountIDStr := strconv.FormatInt(accountID, 10)
	customerIDStr := strconv.FormatInt(customerID, 10)

	if accountID < 0 || len(accountIDStr) != accountIDDigits {
		return errors.NewAppErrorf(errors.InvalidAccountID, "account ID must be %d digits", accountIDDigits)
	}

	if !strings.HasPrefix(accountIDStr, customerIDStr) {
		return errors.NewAppError(errors.InvalidAccountID, "account ID must start with the customer ID")
	}

	return nil
}

// validateAccountLimit rejects a creation once the customer already holds the
// maximum number of accounts. The check sees the pre-insert count.
func validateAccountLimit(repo domain.AccountRepository, customerID int64) error {
	count, err := repo.CountByCustomer(customerID)
	if err != nil {
		return err
	}
	if count >= maxAccountsPerCustomer {
		return errors.ErrMaxAccountsReached
	}
	return nil
}

// validateSalaryUniqueness rejects the operation when it would give the
// customer a second SALARY account. An unparseable type string is not SALARY
// and passes here; membership is checked separately.
func validateSalaryUniqueness(repo domain.AccountRepository, customerID int64, requestedType string) error {
	accountType, ok := domain.ParseAccountType(requestedType)
	if !ok || accountType != domain.Salary {
		return nil
	}

	count, err := repo.CountByCustomerAndType(customerID, domain.Salary)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.ErrSalaryAccountExists
	}
	return nil
}

// validateAccountType checks membership in the closed variant set.
func validateAccountType(requestedType string) (domain.AccountType, error) {
	accountType, ok := domain.ParseAccountType(requestedType)
	if !ok {
		return "", errors.ErrInvalidAccountType
	}
	return accountType, nil
}
