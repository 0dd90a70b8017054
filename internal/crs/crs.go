// Package crs handles coordinate reference system references and the
// legacy GeoJSON "crs" member that older writers emit and newer ones drop.
package crs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Common errors returned by this package.
var (
	ErrMalformed        = errors.New("crs: malformed crs member")
	ErrUnknownAuthority = errors.New("crs: unknown authority")
)

// Ref identifies a coordinate reference system by EPSG code.
// Name and WKT are filled in when the code is in the built-in registry.
type Ref struct {
	Name string // human-readable CRS name, e.g. "GDA94"
	WKT  string // Well-Known Text, empty for codes outside the registry
	Code int    // EPSG code, e.g. 4283
}

// Style selects which historical encoding of the GeoJSON crs member to emit.
type Style int

const (
	// StyleEPSG is the oldest form: {"type":"EPSG","properties":{"code":N}}.
	StyleEPSG Style = iota
	// StyleName is the GeoJSON 2008 form:
	// {"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::N"}}.
	StyleName
)

// WGS84 returns the GPS lat/lng reference system (EPSG:4326).
func WGS84() *Ref {
	r, _ := Lookup(4326)
	return r
}

// Lookup resolves an EPSG code against the built-in registry.
// Codes outside the registry are still usable: the returned Ref carries
// the code with an empty name and WKT, and ok is false.
func Lookup(code int) (*Ref, bool) {
	if r, ok := registry[code]; ok {
		cp := r
		return &cp, true
	}
	return &Ref{Code: code}, false
}

// URN returns the OGC URN form of the reference, e.g.
// "urn:ogc:def:crs:EPSG::4283".
func (r *Ref) URN() string {
	return fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", r.Code)
}

func (r *Ref) String() string {
	if r.Name != "" {
		return fmt.Sprintf("EPSG:%d (%s)", r.Code, r.Name)
	}
	return fmt.Sprintf("EPSG:%d", r.Code)
}

// member is the wire shape of the legacy crs object.
type member struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

type epsgProps struct {
	Code int `json:"code"`
}

type nameProps struct {
	Name string `json:"name"`
}

// ParseMember decodes a legacy GeoJSON crs member in either historical
// encoding and resolves it to a Ref.
func ParseMember(data []byte) (*Ref, error) {
	var m member
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch strings.ToLower(m.Type) {
	case "epsg":
		var p epsgProps
		if err := json.Unmarshal(m.Properties, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.Code <= 0 {
			return nil, fmt.Errorf("%w: non-positive EPSG code %d", ErrMalformed, p.Code)
		}
		r, _ := Lookup(p.Code)
		return r, nil

	case "name":
		var p nameProps
		if err := json.Unmarshal(m.Properties, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ParseName(p.Name)

	default:
		return nil, fmt.Errorf("%w: unsupported crs type %q", ErrMalformed, m.Type)
	}
}

// ParseName resolves a CRS name string. Accepted forms:
//
//	urn:ogc:def:crs:EPSG::4283
//	urn:ogc:def:crs:EPSG:8.9:4283
//	EPSG:4283
//	urn:ogc:def:crs:OGC:1.3:CRS84
func ParseName(name string) (*Ref, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty crs name", ErrMalformed)
	}

	// CRS84 is WGS 84 with lon/lat axis order, which is what GeoJSON
	// coordinates already are.
	if strings.EqualFold(name, "urn:ogc:def:crs:OGC:1.3:CRS84") ||
		strings.EqualFold(name, "urn:ogc:def:crs:OGC::CRS84") {
		return WGS84(), nil
	}

	if strings.HasPrefix(strings.ToLower(name), "urn:ogc:def:crs:") {
		rest := name[len("urn:ogc:def:crs:"):]
		parts := strings.Split(rest, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, name)
		}
		if !strings.EqualFold(parts[0], "EPSG") {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAuthority, parts[0])
		}
		return refFromCodeString(parts[2])
	}

	if rest, ok := cutPrefixFold(name, "EPSG:"); ok {
		return refFromCodeString(rest)
	}

	return nil, fmt.Errorf("%w: %q", ErrMalformed, name)
}

func refFromCodeString(s string) (*Ref, error) {
	code, err := strconv.Atoi(s)
	if err != nil || code <= 0 {
		return nil, fmt.Errorf("%w: bad EPSG code %q", ErrMalformed, s)
	}
	r, _ := Lookup(code)
	return r, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

// MarshalMember encodes the reference as a legacy GeoJSON crs member in
// the requested style.
func (r *Ref) MarshalMember(style Style) (json.RawMessage, error) {
	if r.Code <= 0 {
		return nil, fmt.Errorf("%w: non-positive EPSG code %d", ErrMalformed, r.Code)
	}

	var m member
	switch style {
	case StyleName:
		props, err := json.Marshal(nameProps{Name: r.URN()})
		if err != nil {
			return nil, err
		}
		m = member{Type: "name", Properties: props}
	default:
		props, err := json.Marshal(epsgProps{Code: r.Code})
		if err != nil {
			return nil, err
		}
		m = member{Type: "EPSG", Properties: props}
	}

	return json.Marshal(m)
}
