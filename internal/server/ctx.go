package server

import (
	"path/filepath"
	"sort"
	"sync"

	"geofix/internal/config"
	"geofix/internal/geodoc"
	"geofix/internal/index"

	"github.com/rs/zerolog/log"
)

// dataset bundles everything the handlers need for one served dataset.
type dataset struct {
	cfg  config.Dataset
	doc  *geodoc.Document
	idx  *index.FeatureIndex
	path string
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config   *config.Config
	Resolver map[string]string

	datasets map[string]*dataset

	mu       sync.Mutex
	previews map[string][]byte
}

// NewServerContext initializes the context from the configured datasets.
// Datasets whose local file is missing or unreadable are skipped so the
// server only advertises what it can actually serve.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().Int("config_datasets_count", len(cfg.Datasets)).Msg("Initializing server context")

	resolver := make(map[string]string)
	datasets := make(map[string]*dataset)
	valid := make([]config.Dataset, 0, len(cfg.Datasets))

	for _, ds := range cfg.Datasets {
		path := filepath.Join(cfg.DataDir, ds.Name+".geojson")

		doc, err := geodoc.Read(path)
		if err != nil {
			log.Warn().
				Err(err).
				Str("dataset", ds.Name).
				Str("path", path).
				Msg("Skipping dataset: local file missing or unreadable")
			continue
		}

		idx, err := index.New(doc.FC)
		if err != nil {
			log.Warn().
				Err(err).
				Str("dataset", ds.Name).
				Msg("Skipping dataset: failed to build feature index")
			continue
		}

		if doc.CRS == nil {
			log.Warn().
				Str("dataset", ds.Name).
				Msg("Dataset has no crs member; run crsfix or fetch with --fix")
		}

		resolver[ds.Name] = ds.Name
		for _, alias := range ds.Aliases {
			resolver[alias] = ds.Name
		}

		datasets[ds.Name] = &dataset{cfg: ds, doc: doc, idx: idx, path: path}
		valid = append(valid, ds)

		log.Debug().
			Str("dataset", ds.Name).
			Int("features", idx.Len()).
			Bool("has_crs", doc.CRS != nil).
			Msg("Dataset validated and added to context")
	}

	cfg.Datasets = valid

	sort.Slice(cfg.Datasets, func(i, j int) bool {
		return cfg.Datasets[i].Name < cfg.Datasets[j].Name
	})

	log.Info().
		Int("valid_datasets_count", len(cfg.Datasets)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:   cfg,
		Resolver: resolver,
		datasets: datasets,
		previews: make(map[string][]byte),
	}
}
