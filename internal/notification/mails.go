package notification

import "fmt"

// Mail bodies are deliberately plain text. The association's tone, not
// marketing copy.

func SignupValidated(ownerEmail string, amount string, partialOpen string) {
	body := fmt.Sprintf(
		"Bonjour,\n\n"+
			"Votre inscription est confirmée. Le montant de votre participation "+
			"est de %s€.\n\n"+
			"Merci de verser ce montant sur le compte de l'association en "+
			"mentionnant votre nom en communication.\n\n"+
			"Les inscriptions partielles ouvrent le %s.\n",
		amount, partialOpen)
	Notify([]string{ownerEmail}, "Votre inscription", body)
}

func BillModified(ownerEmail string, amount string) {
	body := fmt.Sprintf(
		"Bonjour,\n\n"+
			"Votre inscription a été modifiée. Le nouveau montant de votre "+
			"participation est de %s€.\n",
		amount)
	Notify([]string{ownerEmail}, "Modification d'inscription", body)
}

func PaymentConfirmation(ownerEmail string) {
	body := "Bonjour,\n\n" +
		"Nous avons bien reçu votre paiement. Votre inscription est complète.\n"
	Notify([]string{ownerEmail}, "Confirmation de réception du paiement", body)
}

func WaitingList(ownerEmail string, rank int) {
	body := fmt.Sprintf(
		"Bonjour,\n\n"+
			"Toutes les places sont prises pour le moment. Vous êtes en position "+
			"%d sur la liste d'attente. Nous vous prévenons dès qu'une place se "+
			"libère.\n",
		rank)
	Notify([]string{ownerEmail}, "Place sur la liste d'attente", body)
}

func WaitingListUnblocked(ownerEmail string, amount string) {
	body := fmt.Sprintf(
		"Bonjour,\n\n"+
			"Bonne nouvelle: vous avez une place. Votre inscription est confirmée. "+
			"Le montant de votre participation est de %s€.\n\n"+
			"Merci de verser ce montant sur le compte de l'association en "+
			"mentionnant votre nom en communication.\n",
		amount)
	Notify([]string{ownerEmail}, "Vous avez une place", body)
}

func PaymentReminder(ownerEmail string, balance string) {
	body := fmt.Sprintf(
		"Bonjour,\n\n"+
			"Sauf erreur de notre part, il reste %s€ à payer pour votre "+
			"inscription.\n",
		balance)
	Notify([]string{ownerEmail}, "Rappel de paiement", body)
}

func ExpenseReportSubmitted(treasurerEmails []string, title, beneficiary, total string) {
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"A new expense report has been added.\n"+
			"Title: %s\n"+
			"Beneficiary: %s\n"+
			"Total: %s\n",
		title, beneficiary, total)
	Notify(treasurerEmails, fmt.Sprintf("New expense report: %s", title), body)
}
