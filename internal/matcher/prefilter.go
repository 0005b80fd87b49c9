package matcher

import (
	"sort"
	"strings"

	"askdata/internal/catalogue/models"
	textutil "askdata/pkg/platform/strings"
)

const (
	// DefaultPrefilterLines bounds the candidate list sent to the interpreter.
	DefaultPrefilterLines = 80

	shortDescriptionRunes = 120
	prefilterNameWeight   = 2
	prefilterMethWeight   = 1
)

// EssentialCodes are always offered to the interpreter.
func EssentialCodes() []string {
	return []string{
		"SP.POP.TOTL", "SP.POP.GROW", "SP.DYN.LE00.IN", "SP.DYN.CBRT.IN",
		"SP.DYN.CDRT.IN", "SP.DYN.TFRT.IN", "SP.DYN.IMRT.IN", "SP.URB.TOTL.IN.ZS",
		"NY.GDP.MKTP.CD", "NY.GDP.MKTP.KD.ZG", "NY.GDP.PCAP.CD", "NY.GDP.PCAP.KD.ZG",
		"NY.GNP.MKTP.CD", "NY.GNP.PCAP.CD",
		"FP.CPI.TOTL.ZG", "GC.DOD.TOTL.GD.ZS",
		"SL.UEM.TOTL.ZS", "SL.UEM.TOTL.NE.ZS", "SL.TLF.TOTL.IN",
		"SE.PRM.ENRR", "SE.SEC.ENRR", "SE.TER.ENRR", "SE.ADT.LITR.ZS",
		"SH.XPD.CHEX.GD.ZS", "SH.MED.PHYS.ZS",
		"IT.NET.USER.ZS", "IT.CEL.SETS.P2",
		"EG.ELC.ACCS.ZS", "EG.USE.ELEC.KH.PC",
		"AG.LND.ARBL.ZS", "AG.LND.FRST.ZS",
		"EN.ATM.CO2E.PC", "EN.ATM.CO2E.KT",
		"BX.KLT.DINV.WD.GD.ZS", "NE.EXP.GNFS.ZS", "NE.IMP.GNFS.ZS",
		"SI.POV.NAHC", "SI.POV.GINI",
		"GC.TAX.TOTL.GD.ZS", "GC.TAX.TOTL.CN", "GC.REV.XGRT.GD.ZS",
		"GC.XPN.TOTL.GD.ZS", "GC.NLD.TOTL.GD.ZS",
		"NE.CON.TOTL.ZS", "NE.GDI.TOTL.ZS", "NY.GDS.TOTL.ZS",
		"MS.MIL.XPND.GD.ZS",
	}
}

// Prefilter builds the "code|name|description" lines offered to the
// interpreter. Essential indicators come first in catalogue order, then
// indicators scoring on terms: 2 per term found in the name or code, 1 per
// term found in the methodology. At most max lines are returned.
func Prefilter(terms []string, indicators []models.Indicator, essential []string, max int) []string {
	if max <= 0 {
		max = DefaultPrefilterLines
	}
	essentialSet := make(map[string]struct{}, len(essential))
	for _, c := range essential {
		essentialSet[c] = struct{}{}
	}

	lines := make([]string, 0, max)
	seen := make(map[string]struct{})
	for _, ind := range indicators {
		if len(lines) == max {
			return lines
		}
		if _, ok := essentialSet[ind.Code]; ok {
			lines = append(lines, PromptLine(ind))
			seen[ind.Code] = struct{}{}
		}
	}

	terms = textutil.DedupeAndTrimLower(terms)
	if len(terms) == 0 {
		return lines
	}

	type scored struct {
		ind   models.Indicator
		score int
	}
	var candidates []scored
	for _, ind := range indicators {
		if _, ok := seen[ind.Code]; ok {
			continue
		}
		name := strings.ToLower(ind.Name)
		code := strings.ToLower(ind.Code)
		meth := strings.ToLower(methodologyOf(ind))
		score := 0
		for _, t := range terms {
			if strings.Contains(name, t) || strings.Contains(code, t) {
				score += prefilterNameWeight
			}
			if meth != "" && strings.Contains(meth, t) {
				score += prefilterMethWeight
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{ind: ind, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	for _, c := range candidates {
		if len(lines) == max {
			break
		}
		lines = append(lines, PromptLine(c.ind))
	}
	return lines
}

// PromptLine renders one indicator as "code|name" plus "|description" when
// a short description is available.
func PromptLine(ind models.Indicator) string {
	line := ind.Code + "|" + ind.Name
	if desc := textutil.FirstSentence(methodologyOf(ind), shortDescriptionRunes); desc != "" {
		line += "|" + desc
	}
	return line
}

func methodologyOf(ind models.Indicator) string {
	if ind.Methodology != "" {
		return ind.Methodology
	}
	return ind.Description
}
