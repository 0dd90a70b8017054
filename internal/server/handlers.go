// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"geofix/internal/geodoc"
	"geofix/internal/render"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

const (
	etagCap     = 64
	previewSize = 512
)

// datasetSummary is the API representation of a served dataset.
type datasetSummary struct {
	Name        string `json:"name"`
	CRS         string `json:"crs,omitempty"`
	Attribution string `json:"attribution,omitempty"`
	EPSG        int    `json:"epsg,omitempty"`
	Features    int    `json:"features"`
	HasCRS      bool   `json:"has_crs"`
}

// HandleDatasetsList serves the JSON summary of available datasets.
func (s *ServerContext) HandleDatasetsList(w http.ResponseWriter, r *http.Request) {
	summaries := make([]datasetSummary, 0, len(s.Config.Datasets))
	for _, cfg := range s.Config.Datasets {
		ds := s.datasets[cfg.Name]
		if ds == nil {
			continue
		}

		sum := datasetSummary{
			Name:        cfg.Name,
			EPSG:        cfg.EPSG,
			Attribution: cfg.Attribution,
			Features:    ds.idx.Len(),
			HasCRS:      ds.doc.CRS != nil,
		}
		if ds.doc.CRS != nil {
			sum.CRS = ds.doc.CRS.String()
		}
		summaries = append(summaries, sum)
	}

	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(summaries)
}

// HandleDataset serves dataset files, bbox-filtered queries and previews.
//
//	/datasets/{name}.geojson            whole file from disk
//	/datasets/{name}.geojson?bbox=...   filtered collection from the index
//	/datasets/{name}/preview.webp       rendered thumbnail
func (s *ServerContext) HandleDataset(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "datasets" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 3 && parts[2] == "preview.webp" {
		s.servePreview(w, r, parts[1])
		return
	}

	if len(parts) != 2 || !strings.HasSuffix(parts[1], ".geojson") {
		http.NotFound(w, r)
		return
	}

	requested := strings.TrimSuffix(parts[1], ".geojson")
	ds := s.resolve(requested)
	if ds == nil {
		http.NotFound(w, r)
		return
	}

	if bbox := r.URL.Query().Get("bbox"); bbox != "" {
		s.serveFiltered(w, r, ds, bbox)
		return
	}

	s.serveFile(w, r, ds.path, "application/geo+json")
}

// serveFiltered answers a bbox query from the in-memory index. The CRS
// of the source document is carried into the response.
func (s *ServerContext) serveFiltered(w http.ResponseWriter, r *http.Request, ds *dataset, bbox string) {
	bound, err := parseBBox(bbox)
	if err != nil {
		http.Error(w, "invalid bbox, want minLon,minLat,maxLon,maxLat", http.StatusBadRequest)
		return
	}

	features, err := ds.idx.Search(bound)
	if err != nil {
		log.Error().Err(err).Str("dataset", ds.cfg.Name).Msg("Index search failed")
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = features

	out := &geodoc.Document{FC: fc, CRS: ds.doc.CRS, Name: ds.doc.Name}

	data, err := out.Encode(nil)
	if err != nil {
		log.Error().Err(err).Str("dataset", ds.cfg.Name).Msg("Failed to encode filtered collection")
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// servePreview renders (and caches) the dataset thumbnail.
func (s *ServerContext) servePreview(w http.ResponseWriter, r *http.Request, requested string) {
	ds := s.resolve(requested)
	if ds == nil {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	img, ok := s.previews[ds.cfg.Name]
	s.mu.Unlock()

	if !ok {
		var err error
		img, err = render.Preview(ds.doc.FC, previewSize)
		if err != nil {
			log.Error().Err(err).Str("dataset", ds.cfg.Name).Msg("Failed to render preview")
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}

		s.mu.Lock()
		s.previews[ds.cfg.Name] = img
		s.mu.Unlock()
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(img)
}

func (s *ServerContext) resolve(requested string) *dataset {
	name, ok := s.Resolver[requested]
	if !ok {
		return nil
	}
	return s.datasets[name]
}

func parseBBox(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, strconv.ErrSyntax
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, err
		}
		vals[i] = v
	}

	return orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}, nil
}

// serveFile tries to serve a file from disk with ETag generation.
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
}
