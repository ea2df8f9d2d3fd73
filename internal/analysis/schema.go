package analysis

import "google.golang.org/genai"

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func num(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func integer(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: desc}
}

func object(desc string, props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Description: desc, Properties: props, Required: required}
}

func array(desc string, items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: items}
}

func payItemSchema() *genai.Schema {
	return object("", map[string]*genai.Schema{
		"description": str("Descrizione della voce, ad esempio 'Paga Base' o 'Contributi IVS'."),
		"quantity":    num("Quantità se presente, ad esempio le ore."),
		"rate":        num("Importo unitario o percentuale se presente."),
		"value":       num("Valore complessivo della voce."),
	}, "description", "value")
}

func leaveBalanceSchema(desc string) *genai.Schema {
	return object(desc, map[string]*genai.Schema{
		"previous": num("Residuo del periodo precedente."),
		"accrued":  num("Maturato nel periodo."),
		"taken":    num("Goduto nel periodo."),
		"balance":  num("Saldo residuo."),
	}, "previous", "accrued", "taken", "balance")
}

// PayslipSchema is the response schema for payslip extraction.
func PayslipSchema() *genai.Schema {
	return object("", map[string]*genai.Schema{
		"id": str("Identificativo univoco (UUID) del documento."),
		"period": object("", map[string]*genai.Schema{
			"month": integer("Mese di riferimento, da 1 a 12."),
			"year":  integer("Anno di riferimento."),
		}, "month", "year"),
		"company": object("", map[string]*genai.Schema{
			"name":    str("Ragione sociale."),
			"taxId":   str("Partita IVA o codice fiscale dell'azienda."),
			"address": str("Indirizzo dell'azienda."),
		}, "name", "taxId"),
		"employee": object("", map[string]*genai.Schema{
			"firstName":    str("Nome del dipendente."),
			"lastName":     str("Cognome del dipendente."),
			"taxId":        str("Codice fiscale del dipendente."),
			"level":        str("Livello di inquadramento."),
			"contractType": str("CCNL applicato."),
		}, "firstName", "lastName", "taxId"),
		"remunerationElements": array("Voci fisse della retribuzione mensile (paga base, contingenza, scatti, superminimo).", payItemSchema()),
		"incomeItems":          array("Tutte le competenze a favore del dipendente, comprese quelle fisse.", payItemSchema()),
		"deductionItems":       array("Tutte le trattenute a carico del dipendente.", payItemSchema()),
		"grossSalary":          num("Totale competenze lorde."),
		"totalDeductions":      num("Totale trattenute."),
		"netSalary":            num("Netto in busta."),
		"taxData": object("", map[string]*genai.Schema{
			"taxableBase": num("Imponibile IRPEF."),
			"grossTax":    num("IRPEF lorda."),
			"deductions": object("", map[string]*genai.Schema{
				"employee": num("Detrazione per lavoro dipendente."),
				"family":   num("Detrazioni per familiari a carico, 0 se assenti."),
				"total":    num("Totale detrazioni."),
			}, "employee", "total"),
			"netTax":          num("IRPEF netta."),
			"regionalSurtax":  num("Addizionale regionale."),
			"municipalSurtax": num("Addizionale comunale."),
		}, "taxableBase", "grossTax", "deductions", "netTax", "regionalSurtax", "municipalSurtax"),
		"socialSecurityData": object("", map[string]*genai.Schema{
			"taxableBase":          num("Imponibile previdenziale INPS."),
			"employeeContribution": num("Contributi a carico del dipendente."),
			"companyContribution":  num("Contributi a carico dell'azienda."),
			"inailContribution":    num("Contributo INAIL, 0 se non indicato."),
		}, "taxableBase", "employeeContribution", "companyContribution"),
		"tfr": object("", map[string]*genai.Schema{
			"taxableBase":     num("Imponibile TFR del mese."),
			"accrued":         num("Quota maturata nel mese."),
			"previousBalance": num("Fondo al periodo precedente."),
			"totalFund":       num("Fondo aggiornato."),
		}, "taxableBase", "accrued", "previousBalance", "totalFund"),
		"leaveData": object("", map[string]*genai.Schema{
			"vacation": leaveBalanceSchema("Ferie."),
			"permits":  leaveBalanceSchema("Permessi e ROL."),
		}, "vacation", "permits"),
	}, "id", "period", "company", "employee", "remunerationElements", "incomeItems", "deductionItems",
		"grossSalary", "totalDeductions", "netSalary", "taxData", "socialSecurityData", "tfr", "leaveData")
}

// HistoricalSchema is the response schema for the comparison against history.
func HistoricalSchema() *genai.Schema {
	item := object("", map[string]*genai.Schema{
		"description":  str("Descrizione della voce."),
		"currentValue": num("Valore nella busta paga corrente."),
		"averageValue": num("Valore medio nello storico, 0 se la voce è nuova."),
		"difference":   num("Valore corrente meno media."),
		"type": {
			Type:        genai.TypeString,
			Description: "income per competenze, deduction per trattenute, other per il resto (TFR, ferie).",
			Enum:        []string{"income", "deduction", "other"},
		},
		"comment": str("Breve spiegazione della differenza."),
	}, "description", "currentValue", "averageValue", "difference", "type", "comment")

	return object("", map[string]*genai.Schema{
		"summary":            str("Analisi testuale delle principali differenze e delle loro cause."),
		"averageNetSalary":   num("Media dei netti precedenti."),
		"averageGrossSalary": num("Media dei lordi precedenti."),
		"differingItems":     array("Voci con differenze significative.", item),
	}, "summary", "averageNetSalary", "averageGrossSalary", "differingItems")
}
