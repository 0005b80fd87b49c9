package interpreter

import (
	"fmt"
	"strconv"
	"strings"
)

const interpretPreamble = `Tu es un assistant expert en analyse de données statistiques de la Côte d'Ivoire.

INDICATEURS DISPONIBLES (code|nom|description):
`

const interpretRules = `
RÈGLES STRICTES:
1. NE JAMAIS inventer de données ou de valeurs.
2. Choisis UNIQUEMENT un code présent dans la liste ci-dessus.
3. Si aucun indicateur ne correspond, réponds {"success": false, "message": "Je ne sais pas."}.
4. Si l'indicateur exact n'existe pas mais qu'un indicateur voisin répond à la question, utilise "match_type": "proxy" et explique la substitution dans "proxy_explanation".
5. Extrais les années demandées si elles sont précisées.
6. Si un calcul est demandé (moyenne, variation, somme), note-le sans le calculer.
7. Réponds UNIQUEMENT en JSON valide.

Structure attendue:
{"success": true, "indicator_code": "CODE", "match_type": "exact", "proxy_explanation": null, "start_year": null, "end_year": null, "calculation_requested": null, "message": ""}
`

func buildInterpretPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(interpretPreamble)
	for _, line := range req.Candidates {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(interpretRules)
	if len(req.Hints) > 0 {
		b.WriteString("\nINDICES:\n")
		for _, h := range req.Hints {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "\nREQUÊTE UTILISATEUR: %q\n\nRéponds en JSON uniquement:", req.Query)
	return b.String()
}

const explainRules = `
Rédige une explication neutre et factuelle de deux à trois phrases, en français, sans inventer de chiffres absents ci-dessus.
Propose jusqu'à cinq noms d'indicateurs liés.
Réponds UNIQUEMENT en JSON: {"message": "...", "related_indicators": ["...", "..."]}
`

func buildExplainPrompt(req ExplainRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "QUESTION: %q\nINDICATEUR: %s", req.Query, req.IndicatorName)
	if req.Unit != "" {
		fmt.Fprintf(&b, " (%s)", req.Unit)
	}
	b.WriteString("\nDONNÉES:\n")
	for _, p := range req.Series {
		b.WriteString(strconv.Itoa(p.Year))
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(p.Value, 'f', -1, 64))
		b.WriteByte('\n')
	}
	if req.Calculation != "" && req.Result != nil {
		fmt.Fprintf(&b, "CALCUL %s: %s\n", req.Calculation, strconv.FormatFloat(*req.Result, 'f', 2, 64))
	}
	b.WriteString(explainRules)
	return b.String()
}
