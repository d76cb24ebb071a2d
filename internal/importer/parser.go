// Package importer parses bank statement exports and loads them as
// operations. Two bank formats are supported; both are semicolon
// separated CSV but disagree on everything else.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParsedOperation is one statement line, bank-format differences already
// normalized away.
type ParsedOperation struct {
	AccountIBAN string
	AccountName string

	Number           int
	Year             int
	Date             time.Time
	Description      string
	Amount           decimal.Decimal
	Currency         string
	EffectiveDate    time.Time
	CounterpartyIBAN string
	CounterpartyName string
	Communication    string
	Reference        string
}

// ParseBPost reads a bpost export: a first line naming the account, a
// header line, then one line per operation. Dates are ISO, amounts use a
// decimal comma, and the communication may span a variable number of
// fields.
func ParseBPost(r io.Reader) ([]ParsedOperation, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	accountRow, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing account line: %w", err)
	}
	if len(accountRow) < 3 {
		return nil, fmt.Errorf("account line should have 3 fields, got %d", len(accountRow))
	}
	iban, accountName := strings.TrimSpace(accountRow[1]), strings.TrimSpace(accountRow[2])

	if _, err := reader.Read(); err != nil { // header line
		return nil, fmt.Errorf("missing header line: %w", err)
	}

	var ops []ParsedOperation
	for line := 3; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		// number;date;description;amount;currency;effective_date;
		// counterparty_iban;counterparty_name;communication...;reference;<empty>
		if len(row) < 10 {
			return nil, fmt.Errorf("line %d: want at least 10 fields, got %d", line, len(row))
		}

		number, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad operation number %q", line, row[0])
		}
		date, err := time.Parse("2006-01-02", row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q", line, row[1])
		}
		amount, err := decimal.NewFromString(strings.Replace(row[3], ",", ".", 1))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad amount %q", line, row[3])
		}
		effectiveDate, err := time.Parse("2006-01-02", row[5])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad effective date %q", line, row[5])
		}

		communication := strings.Join(row[8:len(row)-2], "\n")
		reference := row[len(row)-2]

		ops = append(ops, ParsedOperation{
			AccountIBAN:      iban,
			AccountName:      accountName,
			Number:           number,
			Year:             date.Year(),
			Date:             date,
			Description:      row[2],
			Amount:           amount,
			Currency:         row[4],
			EffectiveDate:    effectiveDate,
			CounterpartyIBAN: row[6],
			CounterpartyName: row[7],
			Communication:    communication,
			Reference:        reference,
		})
	}
	return ops, nil
}

// ParseFortis reads a Fortis export: a header line, then one line per
// operation with the account IBAN repeated on every row. The operation
// number is the second half of the "date-number" field; rows without one
// are pending operations and are skipped.
func ParseFortis(r io.Reader) ([]ParsedOperation, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil { // header line
		return nil, fmt.Errorf("missing header line: %w", err)
	}

	var ops []ParsedOperation
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		// date-number;date;effective_date;amount;currency;account;type;
		// counterparty_iban;counterparty_name;communication;description;
		// status;cancellation
		if len(row) < 13 {
			return nil, fmt.Errorf("line %d: want 13 fields, got %d", line, len(row))
		}

		parts := strings.SplitN(row[0], "-", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			continue // pending operation, no number assigned yet
		}
		number, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad operation number %q", line, row[0])
		}
		date, err := time.Parse("02/01/2006", row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q", line, row[1])
		}
		effectiveDate, err := time.Parse("02/01/2006", row[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad effective date %q", line, row[2])
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad amount %q", line, row[3])
		}

		ops = append(ops, ParsedOperation{
			AccountIBAN:      strings.TrimSpace(row[5]),
			AccountName:      "Fortis",
			Number:           number,
			Year:             date.Year(),
			Date:             date,
			Description:      row[10],
			Amount:           amount,
			Currency:         row[4],
			EffectiveDate:    effectiveDate,
			CounterpartyIBAN: row[7],
			CounterpartyName: row[8],
			Communication:    row[9],
			Reference:        row[10],
		})
	}
	return ops, nil
}
