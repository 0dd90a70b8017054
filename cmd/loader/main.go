package main

import (
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"geofix/internal/config"
	"geofix/internal/fetch"
	"geofix/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string   `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Limit       []string `short:"l" long:"limit"       env:"LIMIT_NAMES" description:"Limit processing to specific dataset names"`
	Concurrency int      `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"4"`
	Force       bool     `short:"f" long:"force"       description:"Force overwrite of existing files"`
	Fix         bool     `short:"x" long:"fix"         description:"Patch in the configured EPSG when the source has no crs member"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 30 * time.Second,
	}

	// Filter datasets if limit is set
	if len(opts.Limit) > 0 {
		available := make(map[string]config.Dataset)
		for _, ds := range cfg.Datasets {
			available[ds.Name] = ds
		}

		seen := make(map[string]bool)
		limited := make([]config.Dataset, 0, len(opts.Limit))

		for _, limitName := range opts.Limit {
			if seen[limitName] {
				continue
			}
			seen[limitName] = true

			if ds, ok := available[limitName]; ok {
				limited = append(limited, ds)
			} else {
				log.Error().
					Str("name", limitName).
					Msg("Dataset specified in --limit not found in configuration")
			}
		}

		cfg.Datasets = limited
	}

	log.Info().
		Int("datasets_queued", len(cfg.Datasets)).
		Str("data_dir", cfg.DataDir).
		Bool("fix", opts.Fix).
		Msg("Starting loader")

	failed := fetch.Datasets(client, cfg, fetch.Options{
		Concurrency: opts.Concurrency,
		Force:       opts.Force,
		Fix:         opts.Fix,
	})

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Loader finished with errors")
		os.Exit(1)
	}

	log.Info().Msg("Loader finished successfully")
}
