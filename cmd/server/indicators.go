package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"askdata/internal/catalogue/models"
	"askdata/internal/matcher"
)

var (
	indicatorsSearch string
	indicatorsLimit  int
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "List or search the indicator catalogue",
	RunE:  runIndicators,
}

func init() {
	indicatorsCmd.Flags().StringVar(&indicatorsSearch, "search", "", "rank indicators against this text")
	indicatorsCmd.Flags().IntVar(&indicatorsLimit, "limit", 50, "maximum rows to print (0 for all)")
}

func runIndicators(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalogue(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	inds := cat.Indicators()
	if indicatorsSearch != "" {
		inds = matcher.New().Search(indicatorsSearch, inds)
	}
	if indicatorsLimit > 0 && len(inds) > indicatorsLimit {
		inds = inds[:indicatorsLimit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tUNIT\tYEARS")
	for _, ind := range inds {
		series, _ := cat.Series(ind.Code)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ind.Code, ind.Name, ind.Unit, yearSpan(series))
	}
	return w.Flush()
}

func yearSpan(s models.AnnualSeries) string {
	if len(s) == 0 {
		return "-"
	}
	return fmt.Sprintf("%d-%d", s[0].Year, s[len(s)-1].Year)
}
