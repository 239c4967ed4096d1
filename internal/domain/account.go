package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed set of account variants.
type AccountType string

const (
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	Salary     AccountType = "SALARY"
	Investment AccountType = "INVESTMENT"
)

// ParseAccountType maps a case-insensitive string onto the closed variant set.
// The second return value reports whether the string named a valid variant.
func ParseAccountType(s string) (AccountType, bool) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case Checking, Savings, Salary, Investment:
		return t, true
	}
	return "", false
}

func (t AccountType) String() string {
	return string(t)
}

type Account struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	Balance    decimal.Decimal `json:"balance"`
	Status     string          `json:"status"`
	Type       AccountType     `json:"type"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type AccountRepository interface {
	// LockCustomer serializes check-then-write sequences for one customer
	// within the current transaction.
	LockCustomer(customerID int64) error
	CreateAccount(account *Account) error
	GetAccount(id int64) (*Account, error)
	GetAccountForUpdate(id int64) (*Account, error)
	ListAccounts() ([]*Account, error)
	CountByCustomer(customerID int64) (int64, error)
	CountByCustomerAndType(customerID int64, accountType AccountType) (int64, error)
	UpdateAccount(account *Account) error
	DeleteAccount(id int64) error
	DeleteAllByCustomer(customerID int64) error
	WithTransaction(fn func(repo AccountRepository) error) error
}
