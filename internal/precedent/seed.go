package precedent

// SeedEntries is the built-in historical clause set loaded by cmd/seed.
var SeedEntries = []Entry{
	{
		Text: "La Società si impegna a mantenere standard etici e di reputazione in linea con le migliori pratiche di mercato e con i principi di Cassa Depositi e Prestiti.",
		Metadata: map[string]any{
			"original_clause_id": "231 - Reputazione",
			"version":            "Standard Corrente",
			"status":             "approved",
		},
	},
	{
		Text: "La Società si impegna a mantenere standard etici e di reputazione in linea con le migliori pratiche del settore di riferimento.",
		Metadata: map[string]any{
			"original_clause_id": "231 - Reputazione",
			"version":            "A - Approvata 2023",
			"status":             "approved",
		},
	},
	{
		Text: "La Società dichiara di aderire ai principi etici indicati nel proprio codice interno.",
		Metadata: map[string]any{
			"original_clause_id":    "231 - Reputazione",
			"version":               "B - Rifiutata 2022",
			"status":                "rejected",
			"counter_proposal_text": "La clausola deve fare esplicito riferimento agli standard di CDP. Proposta di modifica: 'La Società dichiara di aderire ai principi etici indicati nel proprio codice interno e agli standard di reputazione di CDP.'",
		},
	},
	{
		Text: "La Società può procedere alla distribuzione di dividendi e riserve solo previa autorizzazione scritta di CDP.",
		Metadata: map[string]any{
			"original_clause_id": "8 - Distribuzioni",
			"version":            "Standard Corrente",
			"status":             "approved",
		},
	},
	{
		Text: "La Società può procedere alla distribuzione di dividendi e riserve, a condizione che il debt service coverage ratio (DSCR) si mantenga superiore a 1.2x.",
		Metadata: map[string]any{
			"original_clause_id": "8 - Distribuzioni",
			"version":            "C - Approvata 2024",
			"status":             "approved",
		},
	},
}
