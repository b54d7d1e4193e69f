//go:build lambda

package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/xtding233/honing-forecast/internal/config"
	"github.com/xtding233/honing-forecast/internal/rules"
	"github.com/xtding233/honing-forecast/internal/service"
)

func main() {
	cfg := config.Load()
	if err := config.SetupLogging(cfg.LogLevel, "json", os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("logging")
	}
	h := handler{svc: service.New(rules.NewLoader(cfg.RulesDir), nil, cfg.Profile)}
	lambda.Start(h.handle)
}
