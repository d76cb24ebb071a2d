package importer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const bpostSample = `Généré le;BE68539007547034;Compte à vue
Numéro;Date;Description;Montant;Devise;Date valeur;IBAN contrepartie;Nom contrepartie;Communication;Référence;
12;2026-03-02;VIREMENT;325,00;EUR;2026-03-02;BE71096123456769;DUPONT JEAN;inscription famille dupont;REF001;
13;2026-03-03;DOMICILIATION;-12,50;EUR;2026-03-04;BE12345678901234;ASSURANCE SA;police 4521;partie 2;REF002;
`

func TestParseBPost(t *testing.T) {
	ops, err := ParseBPost(strings.NewReader(bpostSample))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("want 2 operations, got %d", len(ops))
	}

	first := ops[0]
	if first.AccountIBAN != "BE68539007547034" {
		t.Errorf("account IBAN: got %q", first.AccountIBAN)
	}
	if first.AccountName != "Compte à vue" {
		t.Errorf("account name: got %q", first.AccountName)
	}
	if first.Number != 12 || first.Year != 2026 {
		t.Errorf("natural key: got %d/%d", first.Year, first.Number)
	}
	if !first.Amount.Equal(decimal.RequireFromString("325.00")) {
		t.Errorf("decimal comma not handled: got %s", first.Amount)
	}
	if first.CounterpartyName != "DUPONT JEAN" {
		t.Errorf("counterparty: got %q", first.CounterpartyName)
	}
	if first.Reference != "REF001" {
		t.Errorf("reference: got %q", first.Reference)
	}

	// Multi-field communications collapse into one newline-joined field.
	second := ops[1]
	if second.Communication != "police 4521\npartie 2" {
		t.Errorf("communication: got %q", second.Communication)
	}
	if second.Reference != "REF002" {
		t.Errorf("reference: got %q", second.Reference)
	}
	if !second.Amount.IsNegative() {
		t.Errorf("debit should stay negative, got %s", second.Amount)
	}
}

const fortisSample = `Date-Numéro;Date d'exécution;Date valeur;Montant;Devise;Numéro de compte;Type de transaction;Contrepartie;Nom de la contrepartie;Communication;Détails;Statut;Motif du refus
2026-0042;05/03/2026;05/03/2026;160.00;EUR;BE71096123456769;Virement;BE68539007547034;MARTIN SOPHIE;inscription martin;VIREMENT EN EUROS;Comptabilisé;
2026-;06/03/2026;06/03/2026;10.00;EUR;BE71096123456769;Virement;;;en attente;VIREMENT EN EUROS;En attente;
2026-0043;07/03/2026;08/03/2026;-45.00;EUR;BE71096123456769;Virement;BE12345678901234;FOURNISSEUR;facture 88;PAIEMENT;Comptabilisé;
`

func TestParseFortis(t *testing.T) {
	ops, err := ParseFortis(strings.NewReader(fortisSample))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("pending line should be skipped: want 2 operations, got %d", len(ops))
	}

	first := ops[0]
	if first.Number != 42 {
		t.Errorf("number should come from the date-number field, got %d", first.Number)
	}
	if first.Year != 2026 {
		t.Errorf("year: got %d", first.Year)
	}
	if got := first.Date.Format("2006-01-02"); got != "2026-03-05" {
		t.Errorf("dd/mm/yyyy date mishandled: got %s", got)
	}
	if first.AccountIBAN != "BE71096123456769" {
		t.Errorf("account IBAN: got %q", first.AccountIBAN)
	}
	if first.AccountName != "Fortis" {
		t.Errorf("account name: got %q", first.AccountName)
	}
	if first.Description != "VIREMENT EN EUROS" || first.Reference != "VIREMENT EN EUROS" {
		t.Errorf("description/reference: got %q / %q", first.Description, first.Reference)
	}

	if !ops[1].Amount.Equal(decimal.RequireFromString("-45.00")) {
		t.Errorf("amount: got %s", ops[1].Amount)
	}
}

func TestParseBPostRejectsGarbage(t *testing.T) {
	if _, err := ParseBPost(strings.NewReader("")); err == nil {
		t.Fatal("empty input should fail")
	}

	bad := strings.Replace(bpostSample, "325,00", "trois cents", 1)
	if _, err := ParseBPost(strings.NewReader(bad)); err == nil {
		t.Fatal("non-numeric amount should fail")
	}
}

func TestParseFortisRejectsBadDate(t *testing.T) {
	bad := strings.Replace(fortisSample, "05/03/2026;05/03/2026", "2026-03-05;05/03/2026", 1)
	if _, err := ParseFortis(strings.NewReader(bad)); err == nil {
		t.Fatal("ISO date in a Fortis file should fail")
	}
}
