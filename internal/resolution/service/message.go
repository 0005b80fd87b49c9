package service

import (
	"fmt"
	"strings"

	catalogue "askdata/internal/catalogue/models"
	"askdata/internal/resolution/models"
	"askdata/pkg/domain"
)

const (
	countryName = "Côte d'Ivoire"

	messageUnresolved  = "Je ne sais pas. Aucun indicateur ne correspond à cette recherche."
	messageUnavailable = "Le service d'analyse est temporairement indisponible. Réessayez dans quelques instants."
	messageQuotaGuest  = "Vous avez atteint la limite quotidienne de questions. Connectez-vous pour continuer."
	messageQuotaUser   = "Vous avez atteint la limite quotidienne de questions. Ajoutez votre propre clé API pour continuer."
)

// describe builds the deterministic answer text for a resolved series.
func describe(name, unit string, series catalogue.AnnualSeries, calc *models.Calculation, proxy string) string {
	if len(series) == 0 {
		return "Aucune donnée disponible pour cet indicateur."
	}
	var b strings.Builder
	if proxy != "" {
		fmt.Fprintf(&b, "Indicateur de substitution : %s. ", strings.TrimSuffix(proxy, "."))
	}

	first, last := series[0], series[len(series)-1]
	if len(series) == 1 {
		fmt.Fprintf(&b, "Pour l'indicateur « %s » en %s en %d, la valeur est de %.2f", name, countryName, first.Year, first.Value)
	} else {
		fmt.Fprintf(&b, "Pour l'indicateur « %s » en %s de %d à %d, les valeurs varient de %.2f (%d) à %.2f (%d)",
			name, countryName, first.Year, last.Year, first.Value, first.Year, last.Value, last.Year)
	}
	if unit != "" {
		fmt.Fprintf(&b, " %s.", unit)
	} else {
		b.WriteByte('.')
	}
	if calc != nil && calc.Result != nil {
		fmt.Fprintf(&b, " Calcul demandé : %.2f (formule : %s).", *calc.Result, calc.Formula)
	}
	return b.String()
}

func quotaMessage(identity domain.Identity) string {
	if identity.IsAnonymous() {
		return messageQuotaGuest
	}
	return messageQuotaUser
}
