// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/paulmach/orb/project"

	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// CatalogCRS is the common CRS all extents are reprojected to before they
// are unioned at aggregation time: geographic WGS84 longitude/latitude.
const CatalogCRS = "EPSG:4326"

// CRSNames maps the national grid names GUGiK uses in source attributes to
// EPSG identifiers. Recorded as proj:code on items, never used to
// reproject coordinates (the published index data is already WGS84).
var CRSNames = map[string]string{
	"PL-1992":    "EPSG:2180",
	"PL-2000:S5": "EPSG:2176",
	"PL-2000:S6": "EPSG:2177",
	"PL-2000:S7": "EPSG:2178",
	"PL-2000:S8": "EPSG:2179",
}

var epsgRe = regexp.MustCompile(`(?i)^epsg:(\d+)$`)
var urnRe = regexp.MustCompile(`(?i)^urn:ogc:def:crs:epsg:[\d.]*:(\d+)$`)
var uriRe = regexp.MustCompile(`(?i)^https?://www\.opengis\.net/def/crs/epsg/[\d.]+/(\d+)$`)

// Normalize maps the many spellings of a CRS identifier found in source
// metadata (EPSG codes, OGC URNs and URIs, CRS84, national grid names) to
// the canonical "EPSG:<code>" form. Unknown identifiers fail with
// stac.ErrUnsupportedCRS.
func Normalize(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty CRS identifier", stac.ErrUnsupportedCRS)
	}

	upper := strings.ToUpper(trimmed)
	if upper == "CRS:84" || upper == "OGC:CRS84" || upper == "CRS84" {
		return CatalogCRS, nil
	}
	if mapped, ok := CRSNames[upper]; ok {
		return mapped, nil
	}
	for _, re := range []*regexp.Regexp{epsgRe, urnRe, uriRe} {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			return "EPSG:" + m[1], nil
		}
	}

	return "", fmt.Errorf("%w: %q", stac.ErrUnsupportedCRS, name)
}

// Reproject returns a copy of e expressed in the target CRS. Only the
// projections the published data actually uses are supported: WGS84 and web
// mercator. Anything else fails with stac.ErrUnsupportedCRS so the source
// is skipped and reported instead of silently producing wrong coordinates.
func Reproject(e Extent, to string) (Extent, error) {
	if e.IsZero() || e.CRS == to {
		return e, nil
	}

	switch {
	case e.CRS == "EPSG:3857" && to == "EPSG:4326":
		e.Bound = project.Bound(e.Bound, project.Mercator.ToWGS84)
	case e.CRS == "EPSG:4326" && to == "EPSG:3857":
		e.Bound = project.Bound(e.Bound, project.WGS84.ToMercator)
	default:
		return Extent{}, fmt.Errorf("%w: no projection from %s to %s", stac.ErrUnsupportedCRS, e.CRS, to)
	}
	e.CRS = to
	return e, nil
}
