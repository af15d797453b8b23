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

// Package extent computes and combines normalized bounding extents.
// An Extent is a value type: combining two extents produces a new one,
// existing values are never edited in place.
package extent

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// Extent is a bounding box in a declared CRS plus an optional UTC time
// range. The zero value (empty CRS) is the undefined-extent sentinel used
// for empty unions.
type Extent struct {
	Bound orb.Bound
	CRS   string
	Start *time.Time
	End   *time.Time
}

// New returns a purely spatial extent.
func New(b orb.Bound, crs string) Extent {
	return Extent{Bound: b, CRS: crs}
}

// WithInterval returns a copy of e carrying the given UTC time range.
func (e Extent) WithInterval(start, end time.Time) Extent {
	s := start.UTC()
	t := end.UTC()
	e.Start = &s
	e.End = &t
	return e
}

// IsZero reports whether e is the undefined-extent sentinel.
func (e Extent) IsZero() bool {
	return e.CRS == ""
}

// Union combines two extents expressed in the same CRS. Union with the
// undefined sentinel yields the other operand unchanged.
func (e Extent) Union(o Extent) (Extent, error) {
	if e.IsZero() {
		return o, nil
	}
	if o.IsZero() {
		return e, nil
	}
	if e.CRS != o.CRS {
		return Extent{}, fmt.Errorf("cannot union extents in different CRS: %s vs %s", e.CRS, o.CRS)
	}

	out := Extent{
		Bound: e.Bound.Union(o.Bound),
		CRS:   e.CRS,
	}
	out.Start = earlier(e.Start, o.Start)
	out.End = later(e.End, o.End)
	return out, nil
}

// Contains reports whether e fully contains o, both spatially and
// temporally. The undefined sentinel contains nothing and is contained by
// everything.
func (e Extent) Contains(o Extent) bool {
	if o.IsZero() {
		return true
	}
	if e.IsZero() || e.CRS != o.CRS {
		return false
	}
	if !e.Bound.Contains(o.Bound.Min) || !e.Bound.Contains(o.Bound.Max) {
		return false
	}
	if o.Start != nil && (e.Start == nil || e.Start.After(*o.Start)) {
		return false
	}
	if o.End != nil && (e.End == nil || e.End.Before(*o.End)) {
		return false
	}
	return true
}

// Bbox returns the bounding box as [minX, minY, maxX, maxY].
func (e Extent) Bbox() []float64 {
	return []float64{e.Bound.Min[0], e.Bound.Min[1], e.Bound.Max[0], e.Bound.Max[1]}
}

// ToSTAC converts the extent into the STAC collection extent object. The
// undefined sentinel yields empty bbox/interval lists, never a zero box.
func (e Extent) ToSTAC() stac.Extent {
	out := stac.Extent{
		Spatial:  stac.SpatialExtent{Bbox: [][]float64{}},
		Temporal: stac.TemporalExtent{Interval: [][]*string{}},
	}
	if e.IsZero() {
		return out
	}
	out.Spatial.Bbox = [][]float64{e.Bbox()}
	interval := []*string{nil, nil}
	if e.Start != nil {
		s := e.Start.UTC().Format(time.RFC3339)
		interval[0] = &s
	}
	if e.End != nil {
		t := e.End.UTC().Format(time.RFC3339)
		interval[1] = &t
	}
	out.Temporal.Interval = [][]*string{interval}
	return out
}

// Source is any geospatial input that can report its own coverage:
// a vector dataset, a raster, or a service capabilities document.
type Source interface {
	Extent() (Extent, error)
}

// Resolve computes the normalized extent of a source. The bounding box
// stays in the source's native CRS; only the CRS identifier is normalized.
// Reprojection to the catalog CRS is deferred to aggregation so unions are
// always computed in one common CRS.
func Resolve(src Source) (Extent, error) {
	e, err := src.Extent()
	if err != nil {
		return Extent{}, fmt.Errorf("%w: %w", stac.ErrUnreadableSource, err)
	}
	crs, err := Normalize(e.CRS)
	if err != nil {
		return Extent{}, err
	}
	e.CRS = crs
	return e, nil
}

func earlier(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Before(*b) {
		return a
	}
	return b
}

func later(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.After(*b) {
		return a
	}
	return b
}
