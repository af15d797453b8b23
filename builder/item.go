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

package builder

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// Group is one logical unit (one orthophoto sheet, one WMS layer) awaiting
// assembly into an item.
type Group struct {
	// Subcollection is the id of the collection the item will belong to.
	Subcollection string
	// Key is the deterministic group key the item id derives from.
	Key string
	// Geometry is the item footprint; when nil the union bbox is used.
	Geometry orb.Geometry
	// Properties are the item properties carried over from the source.
	Properties map[string]interface{}
	Assets     []DescribedAsset
}

var invalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9\-_\.]+`)

// ItemID derives a stable STAC id from a group key. Pure function of the
// key: re-running over unchanged input yields identical ids, which the
// idempotent merge in the writer depends on.
func ItemID(key string) string {
	id := invalidIDChars.ReplaceAllString(key, "-")
	return strings.Trim(id, "-.")
}

// AssembleItem builds one item from a group. The item extent is the union
// of the member assets' extents, each reprojected to the catalog CRS
// first, so the result always contains every asset's coverage.
func AssembleItem(g Group) (stac.Item, extent.Extent, error) {
	if len(g.Assets) == 0 {
		return stac.Item{}, extent.Extent{}, fmt.Errorf("%w: group %q", stac.ErrEmptyGroup, g.Key)
	}

	var union extent.Extent
	for _, a := range g.Assets {
		reprojected, err := extent.Reproject(a.Extent, extent.CatalogCRS)
		if err != nil {
			return stac.Item{}, extent.Extent{}, fmt.Errorf("asset %s of group %q: %w", a.Key, g.Key, err)
		}
		union, err = union.Union(reprojected)
		if err != nil {
			return stac.Item{}, extent.Extent{}, fmt.Errorf("asset %s of group %q: %w", a.Key, g.Key, err)
		}
	}
	if union.IsZero() {
		return stac.Item{}, extent.Extent{}, fmt.Errorf("%w: group %q has only undefined extents", stac.ErrEmptyGroup, g.Key)
	}

	id := ItemID(g.Key)
	if err := stac.ValidateID(id); err != nil {
		return stac.Item{}, extent.Extent{}, fmt.Errorf("group %q: %w", g.Key, err)
	}

	item := stac.NewItem(id, g.Subcollection)
	item.Bbox = union.Bbox()

	geometry := g.Geometry
	if geometry == nil {
		geometry = union.Bound.ToPolygon()
	}
	rawGeom, err := json.Marshal(geojson.NewGeometry(geometry))
	if err != nil {
		return stac.Item{}, extent.Extent{}, fmt.Errorf("group %q: marshal geometry: %w", g.Key, err)
	}
	geom := json.RawMessage(rawGeom)
	item.Geometry = &geom

	for k, v := range g.Properties {
		item.Properties[k] = v
	}

	for _, a := range g.Assets {
		if _, dup := item.Assets[a.Key]; dup {
			return stac.Item{}, extent.Extent{}, fmt.Errorf("group %q: asset key %q used twice", g.Key, a.Key)
		}
		item.Assets[a.Key] = a.Asset
	}

	return item, union, nil
}
