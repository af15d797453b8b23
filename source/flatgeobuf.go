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

	"github.com/paulmach/orb"
	fgb "github.com/tingold/orb-flatgeobuf"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
)

type flatGeobufDataset struct {
	path   string
	reader *fgb.Reader
	header *fgb.Header
}

// OpenFlatGeobuf opens a FlatGeobuf partition. The file is memory-mapped
// by the underlying reader, so opening is cheap regardless of size.
func OpenFlatGeobuf(path string) (Dataset, error) {
	r, err := fgb.NewReader(path)
	if err != nil {
		return nil, err
	}
	h := r.Header()
	if h == nil {
		return nil, errors.New("flatgeobuf file has no header")
	}
	return &flatGeobufDataset{path: path, reader: r, header: h}, nil
}

func (d *flatGeobufDataset) Name() string {
	return d.header.Name
}

// Extent reports the header envelope in the file's native CRS. Files
// written without an envelope fall back to the union of feature bounds.
func (d *flatGeobufDataset) Extent() (extent.Extent, error) {
	crs := "CRS:84"
	if d.header.CRS != nil && d.header.CRS.Code != 0 {
		crs = fmt.Sprintf("EPSG:%d", d.header.CRS.Code)
	}

	env := d.header.Envelope
	if env != [4]float64{} {
		b := orb.Bound{
			Min: orb.Point{env[0], env[1]},
			Max: orb.Point{env[2], env[3]},
		}
		return extent.New(b, crs), nil
	}

	features, err := d.Features()
	if err != nil {
		return extent.Extent{}, err
	}
	if len(features) == 0 {
		return extent.Extent{}, errors.New("flatgeobuf file has neither envelope nor features")
	}
	b := features[0].Bound
	for _, f := range features[1:] {
		b = b.Union(f.Bound)
	}
	return extent.New(b, crs), nil
}

func (d *flatGeobufDataset) Features() ([]Feature, error) {
	fc, err := d.reader.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make([]Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		feature := Feature{
			Bound:      f.Geometry.Bound(),
			Geometry:   f.Geometry,
			Properties: f.Properties,
		}
		if id, ok := f.Properties["gml_id"].(string); ok && id != "" {
			feature.ID = id
		} else {
			feature.ID = fmt.Sprintf("%s-%d", d.header.Name, i)
		}
		out = append(out, feature)
	}
	return out, nil
}
