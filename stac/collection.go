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

package stac

type Collection struct {
	Type           string           `json:"type"`
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	StacVersion    string           `json:"stac_version"`
	StacExtensions []string         `json:"stac_extensions,omitempty"`
	License        string           `json:"license"`
	Keywords       []string         `json:"keywords,omitempty"`
	Extent         Extent           `json:"extent"`
	Assets         map[string]Asset `json:"assets,omitempty"`
	Links          []Link           `json:"links"`
}

// Extent is the STAC collection extent object. A collection aggregated from
// zero items carries empty bbox/interval lists rather than a degenerate
// zero-area box.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

type SpatialExtent struct {
	Bbox [][]float64 `json:"bbox"`
}

type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

// IsZero reports whether the extent carries no spatial coverage at all,
// i.e. the undefined-extent sentinel.
func (e Extent) IsZero() bool {
	return len(e.Spatial.Bbox) == 0
}

// NewCollection returns a collection document with the undefined-extent
// sentinel and no links yet.
func NewCollection(id, title, description, license string) Collection {
	return Collection{
		Type:           "Collection",
		ID:             id,
		Title:          title,
		Description:    description,
		StacVersion:    Version,
		StacExtensions: Extensions,
		License:        license,
		Extent: Extent{
			Spatial:  SpatialExtent{Bbox: [][]float64{}},
			Temporal: TemporalExtent{Interval: [][]*string{}},
		},
	}
}
