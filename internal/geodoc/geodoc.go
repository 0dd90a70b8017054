// Package geodoc reads and writes GeoJSON documents while keeping the
// legacy top-level "crs" member alive. Feature parsing is delegated to
// orb; this package only owns the document envelope.
package geodoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"geofix/internal/crs"

	"github.com/paulmach/orb/geojson"
)

// Common errors returned by this package.
var (
	ErrNoCRS         = errors.New("geodoc: document has no crs member")
	ErrNoWKT         = errors.New("geodoc: no WKT known for this EPSG code")
	ErrCRSLost       = errors.New("geodoc: crs member lost in round trip")
	ErrNilCollection = errors.New("geodoc: nil feature collection")
)

// Document is a GeoJSON FeatureCollection plus the metadata GeoJSON
// writers tend to drop. CRS is nil when the source had no crs member.
type Document struct {
	FC   *geojson.FeatureCollection
	CRS  *crs.Ref
	Name string
}

// WriteOptions configures serialization.
type WriteOptions struct {
	Style  crs.Style // encoding of the crs member
	Indent bool      // pretty-print with two-space indent
}

// wireIn captures the top-level members orb does not surface.
type wireIn struct {
	Name string          `json:"name"`
	CRS  json.RawMessage `json:"crs"`
}

// memberKV is one top-level member of the output envelope. Encode
// assembles these by hand so the crs lands in a predictable spot and
// foreign members ride along instead of being dropped.
type memberKV struct {
	key string
	val json.RawMessage
}

// Decode parses a GeoJSON FeatureCollection. A missing crs member is not
// an error: the returned document just has a nil CRS.
func Decode(data []byte) (*Document, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("geodoc: %w", err)
	}

	var w wireIn
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("geodoc: %w", err)
	}

	doc := &Document{FC: fc, Name: w.Name}

	if len(w.CRS) > 0 && !bytes.Equal(w.CRS, []byte("null")) {
		ref, err := crs.ParseMember(w.CRS)
		if err != nil {
			return nil, err
		}
		doc.CRS = ref
	}

	// crs and name are surfaced on the Document itself; drop them from
	// the foreign members so encode does not emit them twice. Everything
	// else in ExtraMembers stays and is carried through Encode.
	if fc.ExtraMembers != nil {
		delete(fc.ExtraMembers, "crs")
		delete(fc.ExtraMembers, "name")
	}

	return doc, nil
}

// Read loads and decodes a GeoJSON file.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Encode serializes the document. When the document carries a CRS it is
// emitted as a top-level crs member right after the type, which is where
// every legacy consumer looks for it. Foreign top-level members from the
// source (GeoServer emits totalFeatures, timeStamp and friends) are
// preserved, sorted by key for stable output.
func (d *Document) Encode(opts *WriteOptions) ([]byte, error) {
	if opts == nil {
		opts = &WriteOptions{}
	}
	if d.FC == nil {
		return nil, ErrNilCollection
	}

	members := make([]memberKV, 0, 5+len(d.FC.ExtraMembers))
	members = append(members, memberKV{key: "type", val: json.RawMessage(`"FeatureCollection"`)})

	if d.Name != "" {
		raw, err := json.Marshal(d.Name)
		if err != nil {
			return nil, err
		}
		members = append(members, memberKV{key: "name", val: raw})
	}

	if d.CRS != nil {
		raw, err := d.CRS.MarshalMember(opts.Style)
		if err != nil {
			return nil, err
		}
		members = append(members, memberKV{key: "crs", val: raw})
	}

	if len(d.FC.BBox) > 0 {
		raw, err := json.Marshal(d.FC.BBox)
		if err != nil {
			return nil, err
		}
		members = append(members, memberKV{key: "bbox", val: raw})
	}

	extras := make([]string, 0, len(d.FC.ExtraMembers))
	for k := range d.FC.ExtraMembers {
		switch k {
		case "type", "name", "crs", "bbox", "features":
			continue
		}
		extras = append(extras, k)
	}
	sort.Strings(extras)
	for _, k := range extras {
		raw, err := json.Marshal(d.FC.ExtraMembers[k])
		if err != nil {
			return nil, err
		}
		members = append(members, memberKV{key: k, val: raw})
	}

	features := d.FC.Features
	if features == nil {
		features = []*geojson.Feature{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return nil, err
	}
	members = append(members, memberKV{key: "features", val: raw})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.val)
	}
	buf.WriteByte('}')

	if opts.Indent {
		var out bytes.Buffer
		if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
	return buf.Bytes(), nil
}

// Write serializes the document to a file.
func Write(path string, d *Document, opts *WriteOptions) error {
	data, err := d.Encode(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Patch rewrites the file at path with its crs member set to ref,
// preserving everything else. It returns the CRS the file had before,
// nil if it had none.
func Patch(path string, ref *crs.Ref, opts *WriteOptions) (*crs.Ref, error) {
	doc, err := Read(path)
	if err != nil {
		return nil, err
	}

	prev := doc.CRS
	doc.CRS = ref

	if err := Write(path, doc, opts); err != nil {
		return nil, err
	}
	return prev, nil
}

// VerifyRoundTrip encodes the document, decodes the result and checks
// that the crs member survived with the same EPSG code. This is the
// programmatic form of "write it, read it back, check the CRS is still
// there".
func VerifyRoundTrip(d *Document, opts *WriteOptions) error {
	if d.CRS == nil {
		return ErrNoCRS
	}

	data, err := d.Encode(opts)
	if err != nil {
		return err
	}

	back, err := Decode(data)
	if err != nil {
		return err
	}
	if back.CRS == nil {
		return ErrCRSLost
	}
	if back.CRS.Code != d.CRS.Code {
		return fmt.Errorf("%w: EPSG:%d became EPSG:%d", ErrCRSLost, d.CRS.Code, back.CRS.Code)
	}
	return nil
}

// WritePrj writes a WKT sidecar next to the given data file, replacing
// its extension with .prj. Shapefile tooling picks these up when the
// primary format cannot carry the CRS itself.
func WritePrj(dataPath string, ref *crs.Ref) (string, error) {
	if ref == nil {
		return "", ErrNoCRS
	}
	if ref.WKT == "" {
		return "", fmt.Errorf("%w (EPSG:%d)", ErrNoWKT, ref.Code)
	}

	prjPath := strings.TrimSuffix(dataPath, filepath.Ext(dataPath)) + ".prj"
	if err := os.WriteFile(prjPath, []byte(ref.WKT), 0644); err != nil {
		return "", err
	}
	return prjPath, nil
}
