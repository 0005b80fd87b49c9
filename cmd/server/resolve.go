package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	resolutionhandler "askdata/internal/resolution/handler"
	"askdata/internal/resolution/models"
	"askdata/pkg/domain"
	"askdata/pkg/requestcontext"
)

var resolveSubject string

var resolveCmd = &cobra.Command{
	Use:   "resolve <question>",
	Short: "Answer one question and print the JSON response",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveSubject, "subject", "cli", "account subject charged for the query")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	identity, err := domain.NewAccountIdentity(resolveSubject)
	if err != nil {
		return err
	}
	ctx = requestcontext.WithIdentity(ctx, identity)
	result, err := a.resolution.Resolve(ctx, models.Request{Query: strings.Join(args, " "), Identity: identity})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resolutionhandler.FromResult(result))
}
