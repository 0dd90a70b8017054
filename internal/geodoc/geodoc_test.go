package geodoc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"geofix/internal/crs"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const sampleWithCRS = `{
  "type": "FeatureCollection",
  "crs": {"type": "EPSG", "properties": {"code": 4283}},
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [149.13, -35.28]}, "properties": {"name": "Canberra"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [151.21, -33.87]}, "properties": {"name": "Sydney"}}
  ]
}`

const sampleWithoutCRS = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [149.13, -35.28]}, "properties": {"name": "Canberra"}}
  ]
}`

func TestDecode_WithCRS(t *testing.T) {
	doc, err := Decode([]byte(sampleWithCRS))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if doc.CRS == nil {
		t.Fatal("expected a CRS")
	}
	if doc.CRS.Code != 4283 {
		t.Errorf("expected EPSG:4283, got %d", doc.CRS.Code)
	}
	if len(doc.FC.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(doc.FC.Features))
	}
}

func TestDecode_NameStyleCRS(t *testing.T) {
	data := `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::4326"}},"features":[]}`

	doc, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if doc.CRS == nil || doc.CRS.Code != 4326 {
		t.Errorf("expected EPSG:4326, got %+v", doc.CRS)
	}
}

func TestDecode_WithoutCRS(t *testing.T) {
	doc, err := Decode([]byte(sampleWithoutCRS))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// A missing crs member is the observable failure mode this tool
	// exists for; it must read cleanly and report nil.
	if doc.CRS != nil {
		t.Errorf("expected nil CRS, got %+v", doc.CRS)
	}
}

func TestDecode_NullCRS(t *testing.T) {
	data := `{"type":"FeatureCollection","crs":null,"features":[]}`

	doc, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if doc.CRS != nil {
		t.Errorf("expected nil CRS for null member, got %+v", doc.CRS)
	}
}

func TestDecode_NotACollection(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"Feature"}`)); err == nil {
		t.Fatal("expected error for non-collection input")
	}
}

func TestEncode_CRSPlacement(t *testing.T) {
	doc, err := Decode([]byte(sampleWithCRS))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	data, err := doc.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	s := string(data)
	crsIdx := strings.Index(s, `"crs"`)
	featIdx := strings.Index(s, `"features"`)
	if crsIdx < 0 {
		t.Fatal("crs member missing from output")
	}
	if crsIdx > featIdx {
		t.Error("crs member should precede features")
	}
	if strings.Count(s, `"crs"`) != 1 {
		t.Errorf("crs member emitted %d times", strings.Count(s, `"crs"`))
	}
}

func TestEncode_NoCRS(t *testing.T) {
	doc, err := Decode([]byte(sampleWithoutCRS))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	data, err := doc.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if bytes.Contains(data, []byte(`"crs"`)) {
		t.Error("document without CRS must not grow a crs member")
	}
}

func TestEncode_KeepsForeignMembers(t *testing.T) {
	// GeoServer WFS output carries totalFeatures/timeStamp alongside the
	// features; repairing the crs must not eat them.
	data := `{
	  "type": "FeatureCollection",
	  "totalFeatures": 33,
	  "timeStamp": "2015-02-10T01:37:58.894Z",
	  "crs": {"type": "EPSG", "properties": {"code": 4283}},
	  "features": []
	}`

	doc, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	out, err := doc.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, `"totalFeatures":33`) {
		t.Errorf("totalFeatures dropped: %s", s)
	}
	if !strings.Contains(s, `"timeStamp":"2015-02-10T01:37:58.894Z"`) {
		t.Errorf("timeStamp dropped: %s", s)
	}
	if strings.Count(s, `"crs"`) != 1 {
		t.Errorf("crs member emitted %d times", strings.Count(s, `"crs"`))
	}

	// Foreign members sit between the crs and the features.
	if strings.Index(s, `"crs"`) > strings.Index(s, `"totalFeatures"`) {
		t.Error("crs member should precede foreign members")
	}
	if strings.Index(s, `"totalFeatures"`) > strings.Index(s, `"features"`) {
		t.Error("foreign members should precede features")
	}
}

func TestPatch_KeepsForeignMembers(t *testing.T) {
	data := `{"type":"FeatureCollection","totalFeatures":1,"timeStamp":"2015-02-10T01:37:58.894Z","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[149.13,-35.28]},"properties":{"name":"Canberra"}}]}`

	dir := t.TempDir()
	path := filepath.Join(dir, "wfs.geojson")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	ref, _ := crs.Lookup(4283)
	if _, err := Patch(path, ref, nil); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte(`"totalFeatures":1`)) {
		t.Errorf("patch dropped totalFeatures: %s", out)
	}
	if !bytes.Contains(out, []byte(`"timeStamp"`)) {
		t.Errorf("patch dropped timeStamp: %s", out)
	}

	doc, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.CRS == nil || doc.CRS.Code != 4283 {
		t.Errorf("expected EPSG:4283 after patch, got %+v", doc.CRS)
	}
	if len(doc.FC.Features) != 1 {
		t.Errorf("patch lost features: %d", len(doc.FC.Features))
	}
}

func TestEncode_NilCollection(t *testing.T) {
	doc := &Document{}
	if _, err := doc.Encode(nil); !errors.Is(err, ErrNilCollection) {
		t.Errorf("expected ErrNilCollection, got %v", err)
	}

	// Write must surface the same error instead of panicking.
	if err := Write(filepath.Join(t.TempDir(), "x.geojson"), doc, nil); !errors.Is(err, ErrNilCollection) {
		t.Errorf("expected ErrNilCollection from Write, got %v", err)
	}
}

func TestEncode_Indent(t *testing.T) {
	doc, err := Decode([]byte(sampleWithCRS))
	if err != nil {
		t.Fatal(err)
	}

	out, err := doc.Encode(&WriteOptions{Indent: true})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Contains(out, []byte("\n  ")) {
		t.Error("expected indented output")
	}
	if _, err := Decode(out); err != nil {
		t.Errorf("indented output no longer parses: %v", err)
	}
}

func TestEncode_NameStyle(t *testing.T) {
	ref, _ := crs.Lookup(4283)
	doc := &Document{FC: geojson.NewFeatureCollection(), CRS: ref}

	data, err := doc.Encode(&WriteOptions{Style: crs.StyleName})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Contains(data, []byte("urn:ogc:def:crs:EPSG::4283")) {
		t.Errorf("expected name-style member, got %s", data)
	}
}

func TestEncode_EmptyFeatures(t *testing.T) {
	doc := &Document{FC: geojson.NewFeatureCollection()}

	data, err := doc.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Contains(data, []byte(`"features":[]`)) {
		t.Errorf("expected empty features array, got %s", data)
	}
}

func TestPatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suburbs.geojson")
	if err := os.WriteFile(path, []byte(sampleWithoutCRS), 0644); err != nil {
		t.Fatal(err)
	}

	ref, _ := crs.Lookup(4283)
	prev, err := Patch(path, ref, nil)
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if prev != nil {
		t.Errorf("expected no previous CRS, got %+v", prev)
	}

	// Reread: the patched file must now declare GDA94 and keep its features.
	doc, err := Read(path)
	if err != nil {
		t.Fatalf("Read after patch failed: %v", err)
	}
	if doc.CRS == nil || doc.CRS.Code != 4283 {
		t.Errorf("expected EPSG:4283 after patch, got %+v", doc.CRS)
	}
	if len(doc.FC.Features) != 1 {
		t.Errorf("patch lost features: %d", len(doc.FC.Features))
	}
}

func TestPatch_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.geojson")
	if err := os.WriteFile(path, []byte(sampleWithCRS), 0644); err != nil {
		t.Fatal(err)
	}

	prev, err := Patch(path, crs.WGS84(), nil)
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if prev == nil || prev.Code != 4283 {
		t.Errorf("expected previous EPSG:4283, got %+v", prev)
	}

	doc, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.CRS == nil || doc.CRS.Code != 4326 {
		t.Errorf("expected EPSG:4326, got %+v", doc.CRS)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	doc, err := Decode([]byte(sampleWithCRS))
	if err != nil {
		t.Fatal(err)
	}

	if err := VerifyRoundTrip(doc, nil); err != nil {
		t.Errorf("round trip should succeed: %v", err)
	}

	if err := VerifyRoundTrip(doc, &WriteOptions{Style: crs.StyleName, Indent: true}); err != nil {
		t.Errorf("round trip with name style should succeed: %v", err)
	}
}

func TestVerifyRoundTrip_NoCRS(t *testing.T) {
	doc := &Document{FC: geojson.NewFeatureCollection()}
	if err := VerifyRoundTrip(doc, nil); !errors.Is(err, ErrNoCRS) {
		t.Errorf("expected ErrNoCRS, got %v", err)
	}
}

func TestWritePrj(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "suburbs.geojson")

	ref, _ := crs.Lookup(4283)
	prjPath, err := WritePrj(dataPath, ref)
	if err != nil {
		t.Fatalf("WritePrj failed: %v", err)
	}
	if prjPath != filepath.Join(dir, "suburbs.prj") {
		t.Errorf("unexpected sidecar path: %s", prjPath)
	}

	wkt, err := os.ReadFile(prjPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(wkt), "GDA94") {
		t.Errorf("sidecar missing datum name: %s", wkt)
	}
}

func TestWritePrj_NoWKT(t *testing.T) {
	ref, _ := crs.Lookup(3857) // registry entry without WKT
	if _, err := WritePrj("x.geojson", ref); !errors.Is(err, ErrNoWKT) {
		t.Errorf("expected ErrNoWKT, got %v", err)
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "points.geojson")

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{149.13, -35.28}))

	ref, _ := crs.Lookup(4283)
	doc := &Document{FC: fc, CRS: ref, Name: "points"}

	if err := Write(path, doc, &WriteOptions{Indent: true}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	back, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if back.Name != "points" {
		t.Errorf("name lost: %q", back.Name)
	}
	if back.CRS == nil || back.CRS.Code != 4283 {
		t.Errorf("crs lost: %+v", back.CRS)
	}
}
