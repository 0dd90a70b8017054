// Package convert moves feature collections between the on-disk formats
// this tool understands, carrying the CRS across the boundary.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"geofix/internal/crs"
	"geofix/internal/geodoc"

	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
	fgb "github.com/tingold/orb-flatgeobuf"
)

// Format names the supported on-disk encodings.
type Format string

const (
	FormatGeoJSON    Format = "GeoJSON"
	FormatFlatGeobuf Format = "FlatGeobuf"
)

// Common errors returned by this package.
var (
	ErrUnknownFormat = errors.New("convert: unknown format")
	ErrNoFeatures    = errors.New("convert: no features to write")
)

// Options configures a conversion.
type Options struct {
	// TargetCRS overrides the CRS carried in the source. Nil keeps
	// whatever the source had, including nothing.
	TargetCRS *crs.Ref

	Style  crs.Style // crs member encoding for GeoJSON output
	Indent bool      // pretty-print GeoJSON output
	Minify bool      // strip whitespace from GeoJSON output
}

// DetectFormat guesses the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".fgb":
		return FormatFlatGeobuf, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "flatgeobuf", "fgb":
		return FormatFlatGeobuf, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Convert reads the source file and writes it to the destination path in
// the destination format. Formats are derived from file extensions.
func Convert(src, dst string, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	srcFormat, err := DetectFormat(src)
	if err != nil {
		return err
	}
	dstFormat, err := DetectFormat(dst)
	if err != nil {
		return err
	}

	doc, err := ReadFile(src, srcFormat)
	if err != nil {
		return err
	}

	if opts.TargetCRS != nil {
		doc.CRS = opts.TargetCRS
	}

	return WriteFile(dst, dstFormat, doc, opts)
}

// ReadFile loads a document in the given format.
func ReadFile(path string, format Format) (*geodoc.Document, error) {
	switch format {
	case FormatGeoJSON:
		return geodoc.Read(path)
	case FormatFlatGeobuf:
		return readFlatGeobuf(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile stores a document in the given format.
func WriteFile(path string, format Format, doc *geodoc.Document, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	switch format {
	case FormatGeoJSON:
		return writeGeoJSON(path, doc, opts)
	case FormatFlatGeobuf:
		return writeFlatGeobuf(path, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeGeoJSON(path string, doc *geodoc.Document, opts *Options) error {
	data, err := doc.Encode(&geodoc.WriteOptions{Style: opts.Style, Indent: opts.Indent})
	if err != nil {
		return err
	}

	if opts.Minify {
		m := minify.New()
		m.AddFunc("application/json", mjson.Minify)
		data, err = m.Bytes("application/json", data)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func readFlatGeobuf(path string) (*geodoc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	r, err := fgb.NewReaderFromData(data)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	fc, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	doc := &geodoc.Document{FC: fc}

	if h := r.Header(); h != nil {
		doc.Name = h.Name
		if h.CRS != nil && h.CRS.Code > 0 {
			doc.CRS = headerRef(h.CRS)
		}
	}

	return doc, nil
}

// headerRef resolves a FlatGeobuf header CRS. Registry entries win; for
// codes the registry misses, the header's own name and WKT are kept so
// they survive into GeoJSON output and .prj sidecars. FlatGeobuf writers
// without a WKT slot stash the WKT in the description, so that is
// recovered too.
func headerRef(c *fgb.CRS) *crs.Ref {
	ref, known := crs.Lookup(c.Code)
	if known {
		return ref
	}

	if c.Name != "" {
		ref.Name = c.Name
	}
	ref.WKT = c.WKT
	if ref.WKT == "" && looksLikeWKT(c.Description) {
		ref.WKT = c.Description
	}

	return ref
}

func looksLikeWKT(s string) bool {
	for _, prefix := range []string{"GEOGCS[", "PROJCS[", "GEOGCRS[", "PROJCRS["} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func writeFlatGeobuf(path string, doc *geodoc.Document) error {
	if doc.FC == nil || len(doc.FC.Features) == 0 {
		return ErrNoFeatures
	}

	fgbOpts := fgb.DefaultOptions()
	fgbOpts.Name = doc.Name
	if doc.CRS != nil {
		fgbOpts.CRS = &fgb.CRS{
			Code: doc.CRS.Code,
			Name: doc.CRS.Name,
			WKT:  doc.CRS.WKT,
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := fgb.WriteFeatures(&buf, doc.FC, fgbOpts); err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
