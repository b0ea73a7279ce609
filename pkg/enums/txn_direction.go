package enums

import "fmt"

// TxnDirection marks a wallet transaction as money in or money out.
type TxnDirection string

const (
	TxnDirectionCredit TxnDirection = "CREDIT"
	TxnDirectionDebit  TxnDirection = "DEBIT"
)

// String implements fmt.Stringer.
func (d TxnDirection) String() string {
	return string(d)
}

// IsValid reports whether the value is a known TxnDirection.
func (d TxnDirection) IsValid() bool {
	return d == TxnDirectionCredit || d == TxnDirectionDebit
}

// ParseTxnDirection converts raw input into a TxnDirection.
func ParseTxnDirection(value string) (TxnDirection, error) {
	switch TxnDirection(value) {
	case TxnDirectionCredit:
		return TxnDirectionCredit, nil
	case TxnDirectionDebit:
		return TxnDirectionDebit, nil
	}
	return "", fmt.Errorf("invalid transaction direction %q", value)
}
