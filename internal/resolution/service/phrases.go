package service

import (
	"strings"

	textutil "askdata/pkg/platform/strings"
)

// Phrase maps a short folded phrase to an indicator code.
type Phrase struct {
	Text string
	Code string
}

// DefaultDirectMap is the curated table consulted by the direct tier.
// Longer phrases are listed before the shorter phrases they contain.
func DefaultDirectMap() []Phrase {
	return []Phrase{
		{"croissance du pib", "NY.GDP.MKTP.KD.ZG"},
		{"croissance économique", "NY.GDP.MKTP.KD.ZG"},
		{"croissance démographique", "SP.POP.GROW"},
		{"croissance de la population", "SP.POP.GROW"},
		{"population totale", "SP.POP.TOTL"},
		{"pib nominal", "NAT.base_eco.pib_nominal_mxof"},
		{"produit intérieur brut", "NY.GDP.MKTP.CD"},
		{"pression fiscale", "NAT.tofe.pression_fiscale"},
		{"recettes fiscales", "NAT.tofe.recettes_fiscales"},
		{"solde budgétaire", "NAT.tofe.solde_budgetaire_pct_pib"},
		{"accès à l'électricité", "EG.ELC.ACCS.ZS"},
		{"espérance de vie", "SP.DYN.LE00.IN"},
		{"taux de chômage", "SL.UEM.TOTL.ZS"},
		{"population", "SP.POP.TOTL"},
		{"pib", "NY.GDP.MKTP.CD"},
		{"inflation", "FP.CPI.TOTL.ZG"},
		{"électricité", "EG.ELC.ACCS.ZS"},
		{"chômage", "SL.UEM.TOTL.ZS"},
	}
}

// DefaultSynonyms expands colloquial terms before interpretation and
// keyword matching.
func DefaultSynonyms() map[string][]string {
	return map[string][]string{
		"pib":         {"produit intérieur brut", "gdp"},
		"gdp":         {"pib"},
		"chômage":     {"unemployment", "sans emploi"},
		"inflation":   {"prix à la consommation", "ipc"},
		"prix":        {"inflation"},
		"habitants":   {"population"},
		"électricité": {"electricite", "énergie"},
		"impôts":      {"recettes fiscales"},
		"taxes":       {"recettes fiscales"},
		"déficit":     {"solde budgétaire"},
		"naissance":   {"espérance de vie"},
	}
}

type directHit struct {
	phrase Phrase
	simple bool
}

// matchDirect finds the longest table phrase contained in the query on word
// boundaries. The hit is simple when the query has at most three words or
// the phrase covers more than half of it.
func matchDirect(query string, table []Phrase) (directHit, bool) {
	folded := " " + strings.Join(textutil.Words(query), " ") + " "
	var (
		best  Phrase
		found bool
	)
	for _, p := range table {
		needle := " " + strings.Join(textutil.Words(p.Text), " ") + " "
		if !strings.Contains(folded, needle) {
			continue
		}
		if !found || textutil.RuneLen(p.Text) > textutil.RuneLen(best.Text) {
			best, found = p, true
		}
	}
	if !found {
		return directHit{}, false
	}
	words := len(textutil.Words(query))
	covered := 2*textutil.RuneLen(best.Text) > textutil.RuneLen(strings.TrimSpace(query))
	return directHit{phrase: best, simple: words <= 3 || covered}, true
}

// expand returns the synonym expansions triggered by the query, in the
// order the triggering words appear.
func expand(query string, synonyms map[string][]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range textutil.Words(query) {
		for _, s := range synonyms[w] {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

var stopwords = map[string]struct{}{
	"quel": {}, "quelle": {}, "quels": {}, "quelles": {}, "est": {}, "sont": {},
	"les": {}, "des": {}, "une": {}, "pour": {}, "dans": {}, "entre": {},
	"depuis": {}, "avant": {}, "après": {}, "combien": {}, "donne": {}, "moi": {},
	"montre": {}, "côte": {}, "ivoire": {}, "taux": {}, "niveau": {}, "valeur": {},
}

// enrichedTerms returns the meaningful query words followed by synonym
// expansions. Years and stopwords are dropped.
func enrichedTerms(query string, synonyms map[string][]string) []string {
	var terms []string
	for _, w := range textutil.Words(query) {
		if yearPattern.MatchString(w) {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}
	terms = append(terms, expand(query, synonyms)...)
	return textutil.DedupeAndTrimLower(terms)
}
