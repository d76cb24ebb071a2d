package importer

import (
	"fmt"

	"assoc-backend/internal/models"

	"gorm.io/gorm"
)

// ImportResult reports what a statement import did.
type ImportResult struct {
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"` // already imported, matched on (account, year, number)
	Accounts []string `json:"accounts"`
}

// Import loads parsed operations. Accounts are created on first sight of
// their IBAN. Re-importing an overlapping statement is safe: operations
// whose natural key already exists are skipped, never updated. Statements
// are the source of truth; once in, an operation is immutable.
func Import(tx *gorm.DB, ops []ParsedOperation) (*ImportResult, error) {
	result := &ImportResult{}
	accountIDs := map[string]uint{}

	for _, parsed := range ops {
		accountID, ok := accountIDs[parsed.AccountIBAN]
		if !ok {
			var err error
			accountID, err = getOrCreateAccount(tx, parsed.AccountIBAN, parsed.AccountName)
			if err != nil {
				return nil, err
			}
			accountIDs[parsed.AccountIBAN] = accountID
			result.Accounts = append(result.Accounts, parsed.AccountIBAN)
		}

		var existing int64
		err := tx.Model(&models.Operation{}).
			Where("account_id = ? AND year = ? AND number = ?", accountID, parsed.Year, parsed.Number).
			Count(&existing).Error
		if err != nil {
			return nil, err
		}
		if existing > 0 {
			result.Skipped++
			continue
		}

		op := models.Operation{
			AccountID:        accountID,
			Year:             parsed.Year,
			Number:           parsed.Number,
			Date:             parsed.Date,
			Description:      parsed.Description,
			Amount:           parsed.Amount.Round(2),
			Currency:         parsed.Currency,
			EffectiveDate:    parsed.EffectiveDate,
			CounterpartyIBAN: parsed.CounterpartyIBAN,
			CounterpartyName: parsed.CounterpartyName,
			Communication:    parsed.Communication,
			Reference:        parsed.Reference,
		}
		if err := tx.Create(&op).Error; err != nil {
			return nil, fmt.Errorf("operation %d/%d: %w", parsed.Year, parsed.Number, err)
		}
		result.Created++
	}
	return result, nil
}

func getOrCreateAccount(tx *gorm.DB, iban, name string) (uint, error) {
	if iban == "" {
		return 0, fmt.Errorf("statement line without an account IBAN")
	}
	var account models.Account
	err := tx.Where(models.Account{IBAN: iban}).
		Attrs(models.Account{Name: name}).
		FirstOrCreate(&account).Error
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}
