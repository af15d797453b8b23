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

package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
)

type geoJSONDataset struct {
	path string
	fc   *geojson.FeatureCollection
}

// OpenGeoJSON reads a GeoJSON feature collection. Per RFC 7946 the
// coordinates are WGS84 longitude/latitude, there is no CRS to detect.
func OpenGeoJSON(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return &geoJSONDataset{path: path, fc: fc}, nil
}

func (d *geoJSONDataset) Name() string {
	return strings.TrimSuffix(filepath.Base(d.path), filepath.Ext(d.path))
}

func (d *geoJSONDataset) Extent() (extent.Extent, error) {
	if len(d.fc.Features) == 0 {
		return extent.Extent{}, errors.New("geojson feature collection is empty")
	}
	b := d.fc.Features[0].Geometry.Bound()
	for _, f := range d.fc.Features[1:] {
		if f.Geometry != nil {
			b = b.Union(f.Geometry.Bound())
		}
	}
	return extent.New(b, "CRS:84"), nil
}

func (d *geoJSONDataset) Features() ([]Feature, error) {
	out := make([]Feature, 0, len(d.fc.Features))
	for i, f := range d.fc.Features {
		if f.Geometry == nil {
			continue
		}
		feature := Feature{
			Bound:      f.Geometry.Bound(),
			Geometry:   f.Geometry,
			Properties: f.Properties,
		}
		switch id := f.ID.(type) {
		case string:
			feature.ID = id
		case float64:
			feature.ID = fmt.Sprintf("%s-%d", d.Name(), int(id))
		default:
			if gmlID, ok := f.Properties["gml_id"].(string); ok && gmlID != "" {
				feature.ID = gmlID
			} else {
				feature.ID = fmt.Sprintf("%s-%d", d.Name(), i)
			}
		}
		out = append(out, feature)
	}
	return out, nil
}
