package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gianix81/payAnalyst/internal/payslip"
)

var monthNames = [...]string{
	"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
	"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre",
}

// MonthName returns the Italian name of month (1-12), or the number itself when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d", month)
	}
	return monthNames[month-1]
}

func periodLabel(p payslip.Period) string {
	return fmt.Sprintf("%s %d", MonthName(p.Month), p.Year)
}

const extractionPrompt = `Analizza in modo accurato e completo questa busta paga italiana ed estrai tutti i dati nel formato JSON richiesto.
Segui queste indicazioni:
- Dati anagrafici: riporta nome, cognome e codice fiscale del dipendente, ragione sociale e partita IVA dell'azienda.
- Elementi della retribuzione: elenca le voci fisse (paga base, contingenza, scatti, superminimo) separatamente dal corpo della busta.
- Corpo: includi ogni competenza in incomeItems e ogni trattenuta in deductionItems, con quantità e importo unitario quando presenti.
- Dati fiscali e previdenziali: imponibili, IRPEF lorda e netta, detrazioni, addizionali, contributi INPS e INAIL, TFR, ferie e permessi.
- Accuratezza numerica: usa il punto come separatore decimale e non arrotondare gli importi.
- Completezza: se un valore numerico obbligatorio non è presente usa 0.
- ID univoco: genera un UUID v4 per il campo id.`

func comparisonPrompt(p1, p2 payslip.Payslip) (string, error) {
	j1, err := json.Marshal(p1)
	if err != nil {
		return "", err
	}
	j2, err := json.Marshal(p2)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Come consulente del lavoro, confronta le due buste paga seguenti in formato JSON.\n")
	fmt.Fprintf(&b, "Busta Paga 1 (%s): %s\n", periodLabel(p1.Period), j1)
	fmt.Fprintf(&b, "Busta Paga 2 (%s): %s\n", periodLabel(p2.Period), j2)
	b.WriteString("Evidenzia le differenze principali su netto, lordo, trattenute e voci variabili e spiegane le cause probabili in un testo chiaro, senza markdown.")
	return b.String(), nil
}

func summaryPrompt(p payslip.Payslip) (string, error) {
	j, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Come consulente del lavoro, riassumi in 2 o 3 paragrafi discorsivi la busta paga di %s in formato JSON, "+
		"spiegando al dipendente le voci principali, le trattenute e il netto. Non usare markdown.\n%s",
		periodLabel(p.Period), j), nil
}

func historicalPrompt(current payslip.Payslip, history []payslip.Payslip) (string, error) {
	cj, err := json.Marshal(current)
	if err != nil {
		return "", err
	}
	hj, err := json.Marshal(history)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Come esperto consulente del lavoro, analizza la busta paga di %s rispetto allo storico delle buste paga precedenti.\n", periodLabel(current.Period))
	b.WriteString("1. Calcola la media del netto e del lordo delle buste paga storiche.\n")
	b.WriteString("2. Individua le voci di competenza e di trattenuta che differiscono in modo significativo dalla media.\n")
	b.WriteString("3. Segnala le voci nuove o assenti rispetto allo storico.\n")
	b.WriteString("4. Per ogni differenza indica valore corrente, valore medio, differenza e un breve commento.\n")
	b.WriteString("5. Scrivi un riepilogo testuale delle cause più probabili.\n")
	fmt.Fprintf(&b, "Busta paga corrente: %s\n", cj)
	fmt.Fprintf(&b, "Storico: %s", hj)
	return b.String(), nil
}
