package wikibase

import (
	"encoding/json"

	"github.com/paulmach/orb"
)

// Globe is the celestial body a coordinate refers to.
type Globe int

const (
	GlobeUnknown Globe = iota
	GlobeEarth
)

// EarthGlobeURI is the concept URI of Earth.
const EarthGlobeURI = "http://www.wikidata.org/entity/Q2"

// URI returns the concept URI of the globe, or "" for GlobeUnknown.
func (g Globe) URI() string {
	if g == GlobeEarth {
		return EarthGlobeURI
	}
	return ""
}

func globeFromURI(uri string) Globe {
	if entityURIID(uri) == "Q2" {
		return GlobeEarth
	}
	return GlobeUnknown
}

// GlobeCoordinateValue is a latitude/longitude pair in degrees.
type GlobeCoordinateValue struct {
	Latitude  float64
	Longitude float64
	Precision float64
	Globe     Globe
}

// NewGlobeCoordinateValue creates an Earth coordinate.
func NewGlobeCoordinateValue(lat, lon, precision float64) *GlobeCoordinateValue {
	return &GlobeCoordinateValue{Latitude: lat, Longitude: lon, Precision: precision, Globe: GlobeEarth}
}

// NewGlobeCoordinateFromPoint creates an Earth coordinate from an orb point
// (longitude first).
func NewGlobeCoordinateFromPoint(p orb.Point, precision float64) *GlobeCoordinateValue {
	return NewGlobeCoordinateValue(p.Lat(), p.Lon(), precision)
}

// Point returns the coordinate as an orb point.
func (v *GlobeCoordinateValue) Point() orb.Point {
	return orb.Point{v.Longitude, v.Latitude}
}

func (*GlobeCoordinateValue) Kind() ValueKind { return KindGlobeCoordinate }
func (*GlobeCoordinateValue) dataValue()      {}

func (v *GlobeCoordinateValue) Encode() (any, error) {
	if v.Globe == GlobeUnknown {
		return nil, stateErr("globe coordinate has unknown globe")
	}
	return map[string]any{
		"latitude":  v.Latitude,
		"longitude": v.Longitude,
		"precision": v.Precision,
		"globe":     v.Globe.URI(),
	}, nil
}

func (v *GlobeCoordinateValue) Equal(other DataValue) bool {
	o, ok := other.(*GlobeCoordinateValue)
	return ok && o != nil && v.Latitude == o.Latitude && v.Longitude == o.Longitude &&
		v.Precision == o.Precision && v.Globe == o.Globe
}

func decodeGlobeCoordinateValue(raw json.RawMessage) (*GlobeCoordinateValue, error) {
	m, err := decodeObject(raw, "globecoordinate")
	if err != nil {
		return nil, err
	}
	v := &GlobeCoordinateValue{}
	for _, f := range []struct {
		key      string
		dst      *float64
		required bool
	}{
		{"latitude", &v.Latitude, true},
		{"longitude", &v.Longitude, true},
		{"precision", &v.Precision, false},
	} {
		raw, ok := m[f.key]
		if !ok {
			if f.required {
				return nil, formatErr("globecoordinate value missing %q", f.key)
			}
			continue
		}
		n, err := parseFloat(raw)
		if err != nil {
			return nil, formatErr("globecoordinate field %q is not a number", f.key)
		}
		*f.dst = n
	}
	if raw, ok := m["globe"]; ok {
		var uri string
		if err := json.Unmarshal(raw, &uri); err != nil {
			return nil, formatErr("globecoordinate globe must be a string")
		}
		v.Globe = globeFromURI(uri)
	}
	return v, nil
}
