//go:build !lambda

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/xtding233/honing-forecast/internal/config"
	"github.com/xtding233/honing-forecast/internal/rules"
	"github.com/xtding233/honing-forecast/internal/service"
)

// Without the lambda tag the function runs once on a payload read from stdin.
func main() {
	config.LoadEnvFiles()
	cfg := config.Load()
	if err := config.SetupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("logging")
	}
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Msg("read stdin")
	}
	h := handler{svc: service.New(rules.NewLoader(cfg.RulesDir), nil, cfg.Profile)}
	resp, err := h.handle(context.Background(), events.LambdaFunctionURLRequest{Body: string(body)})
	if err != nil {
		log.Fatal().Err(err).Msg("handle")
	}
	fmt.Println(resp.Body)
	if resp.StatusCode != 200 {
		os.Exit(1)
	}
}
