// Package coords converts the micro-degree latitude/longitude fields
// carried on Contact and SelfInfo into human-readable form. It is not
// used by the command/dispatch/state pipeline — only by the example CLI.
package coords

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

// FromMicroDegrees builds an s2.LatLng from the int32 micro-degree
// fields stored on Contact.Lat/Lon and SelfInfo.Lat/Lon.
func FromMicroDegrees(latMicro, lonMicro int32) s2.LatLng {
	return s2.LatLngFromDegrees(float64(latMicro)/1e6, float64(lonMicro)/1e6)
}

// ToMicroDegrees is the inverse of FromMicroDegrees: it converts a
// decimal-degree position to the micro-degree form SetAdvertLatLon carries.
func ToMicroDegrees(ll s2.LatLng) (latMicro, lonMicro int32) {
	return int32(math.Round(ll.Lat.Degrees() * 1e6)), int32(math.Round(ll.Lng.Degrees() * 1e6))
}

// Hemisphere reports whether ll's latitude falls in the northern or
// southern hemisphere.
func Hemisphere(ll s2.LatLng) coordconv.Hemisphere {
	if ll.Lat.Degrees() < 0 {
		return coordconv.HemisphereSouth
	}
	return coordconv.HemisphereNorth
}

// String renders ll as "DD.DDDDDD H, DD.DDDDDD" with a hemisphere tag on
// the latitude, e.g. "42.662139 N, -71.365553".
func String(ll s2.LatLng) string {
	return fmt.Sprintf("%.6f %c, %.6f", ll.Lat.Degrees(), hemisphereRune(Hemisphere(ll)), ll.Lng.Degrees())
}

func hemisphereRune(h coordconv.Hemisphere) rune {
	switch h {
	case coordconv.HemisphereNorth:
		return 'N'
	case coordconv.HemisphereSouth:
		return 'S'
	default:
		return '?'
	}
}
