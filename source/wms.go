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
	"encoding/xml"
	"errors"
	"os"

	"github.com/paulmach/orb"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
)

// WMS capabilities are a declared-extent source: the advertised layer
// bounding boxes are trusted as-is, nothing is recomputed from data.

type wmsCapabilities struct {
	XMLName xml.Name
	Service struct {
		Title    string `xml:"Title"`
		Abstract string `xml:"Abstract"`
	} `xml:"Service"`
	Capability struct {
		Layer wmsLayer `xml:"Layer"`
	} `xml:"Capability"`
}

type wmsLayer struct {
	Name     string `xml:"Name"`
	Title    string `xml:"Title"`
	Abstract string `xml:"Abstract"`
	Geo      *struct {
		West  float64 `xml:"westBoundLongitude"`
		East  float64 `xml:"eastBoundLongitude"`
		South float64 `xml:"southBoundLatitude"`
		North float64 `xml:"northBoundLatitude"`
	} `xml:"EX_GeographicBoundingBox"`
	Dimensions []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"Dimension"`
	Layers []wmsLayer `xml:"Layer"`
}

type wmsDataset struct {
	path     string
	title    string
	features []Feature
}

// OpenCapabilities parses a WMS 1.3.0 capabilities document into one
// feature per named layer. Nested layers inherit the bounding box of their
// closest ancestor that declares one, as the WMS spec prescribes.
func OpenCapabilities(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var caps wmsCapabilities
	if err := xml.Unmarshal(data, &caps); err != nil {
		return nil, err
	}

	var features []Feature
	collectLayers(caps.Capability.Layer, orb.Bound{}, false, &features)
	if len(features) == 0 {
		return nil, errors.New("capabilities document declares no named layers with a bounding box")
	}

	return &wmsDataset{path: path, title: caps.Service.Title, features: features}, nil
}

func collectLayers(layer wmsLayer, inherited orb.Bound, haveBound bool, out *[]Feature) {
	bound := inherited
	if layer.Geo != nil {
		bound = orb.Bound{
			Min: orb.Point{layer.Geo.West, layer.Geo.South},
			Max: orb.Point{layer.Geo.East, layer.Geo.North},
		}
		haveBound = true
	}

	if layer.Name != "" && haveBound {
		props := map[string]interface{}{
			"title": layer.Title,
		}
		if layer.Abstract != "" {
			props["description"] = layer.Abstract
		}
		for _, dim := range layer.Dimensions {
			if dim.Name == "time" && dim.Value != "" {
				props["time"] = dim.Value
			}
		}
		*out = append(*out, Feature{
			ID:         layer.Name,
			Bound:      bound,
			Geometry:   bound.ToPolygon(),
			Properties: props,
		})
	}

	for _, child := range layer.Layers {
		collectLayers(child, bound, haveBound, out)
	}
}

func (d *wmsDataset) Name() string {
	return d.title
}

// Extent is the union of the declared layer bounding boxes.
// EX_GeographicBoundingBox is always geographic WGS84.
func (d *wmsDataset) Extent() (extent.Extent, error) {
	b := d.features[0].Bound
	for _, f := range d.features[1:] {
		b = b.Union(f.Bound)
	}
	return extent.New(b, "CRS:84"), nil
}

func (d *wmsDataset) Features() ([]Feature, error) {
	return d.features, nil
}
