package enums

import "fmt"

// AccountType classifies an organization's financial account.
type AccountType string

const (
	AccountTypeBank      AccountType = "BANK"
	AccountTypeCash      AccountType = "CASH"
	AccountTypeCheque    AccountType = "CHEQUE"
	AccountTypeOverdraft AccountType = "OVERDRAFT"
)

var validAccountTypes = []AccountType{
	AccountTypeBank,
	AccountTypeCash,
	AccountTypeCheque,
	AccountTypeOverdraft,
}

// String implements fmt.Stringer.
func (a AccountType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountType.
func (a AccountType) IsValid() bool {
	for _, candidate := range validAccountTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountType converts raw input into an AccountType.
func ParseAccountType(value string) (AccountType, error) {
	for _, candidate := range validAccountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account type %q", value)
}
