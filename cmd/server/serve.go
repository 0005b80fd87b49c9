package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cachehandler "askdata/internal/cache/handler"
	cataloguehandler "askdata/internal/catalogue/handler"
	credentialhandler "askdata/internal/credential/handler"
	jwttoken "askdata/internal/jwt_token"
	"askdata/internal/platform/httpserver"
	quotahandler "askdata/internal/quota/handler"
	resolutionhandler "askdata/internal/resolution/handler"
	httptransport "askdata/internal/transport/http"
	authmw "askdata/pkg/platform/middleware/auth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	var validator authmw.JWTValidator
	if cfg.Auth.JWTSigningKey != "" {
		validator = jwttoken.NewVerifier(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer))
	} else {
		log.Warn("ASKDATA_JWT_SIGNING_KEY not set; every caller is anonymous")
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Registry:  a.registry,
		Validator: validator,
		Auth: authmw.Options{
			CookieName:   cfg.Auth.CookieName,
			CookieSecure: cfg.Auth.CookieSecure,
		},
		RequestTimeout: cfg.Interpreter.AttemptTimeout * 4,
		Health:         a.health,
		Modules: []httptransport.Module{
			resolutionhandler.New(a.resolution, log),
			cachehandler.New(a.cache, log),
			cataloguehandler.New(a.catalogue, a.matcher, log),
			quotahandler.New(a.quota, log),
			credentialhandler.New(a.credential, log),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
}
