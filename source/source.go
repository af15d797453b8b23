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

// Package source opens raw downloaded files behind one capability-set
// abstraction: every source kind exposes an extent and a list of features.
// New kinds (raster tiles, geoparquet partitions) are added by registering
// an Opener for their media type, not by extending a type hierarchy.
package source

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// Feature is one record of a source: a geometry (or declared bounding box)
// plus the attributes describing one downloadable unit, e.g. one
// orthophoto sheet or one advertised WMS layer.
type Feature struct {
	ID         string
	Bound      orb.Bound
	Geometry   orb.Geometry
	Properties map[string]interface{}
}

// Dataset is what every source kind exposes to the pipeline.
type Dataset interface {
	extent.Source

	// Name is the dataset's own name from its metadata, empty if the
	// format carries none.
	Name() string

	// Features lists the records the source describes. A capabilities
	// document lists its layers here.
	Features() ([]Feature, error)
}

// Opener opens the file at path as a Dataset.
type Opener func(path string) (Dataset, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{}
)

// Register installs an Opener for a media type. Format readers owned by
// collaborators (e.g. a geoparquet reader) plug in here.
func Register(mediaType string, o Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[mediaType] = o
}

// Registered lists media types with an installed Opener, sorted.
func Registered() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	types := make([]string, 0, len(openers))
	for t := range openers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Open detects the media type of the file at path and opens it with the
// registered reader. Files without a reader fail with
// stac.ErrUnreadableSource so the pipeline skips and reports them.
func Open(path string) (Dataset, error) {
	mediaType := Detect(path, "")
	openersMu.RLock()
	opener, ok := openers[mediaType]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no reader registered for %s (%s)", stac.ErrUnreadableSource, mediaType, path)
	}
	ds, err := opener(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", stac.ErrUnreadableSource, path, err)
	}
	log.Debug().Str("path", path).Str("media_type", mediaType).Msg("opened source")
	return ds, nil
}

func init() {
	Register(stac.MediaTypeFlatGeobuf, OpenFlatGeobuf)
	Register(stac.MediaTypeGeoJSON, OpenGeoJSON)
	Register(stac.MediaTypeCapabilities, OpenCapabilities)
}
