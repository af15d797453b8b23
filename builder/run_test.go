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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/source"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// testMapper assigns every feature of every source to one fixed
// subcollection, keyed by the feature id.
type testMapper struct {
	sub string
}

func (m testMapper) MapSource(path string, ds source.Dataset, features []source.Feature, srcExtent extent.Extent) ([]Group, error) {
	groups := make([]Group, 0, len(features))
	for _, f := range features {
		groups = append(groups, Group{
			Subcollection: m.sub,
			Key:           f.ID,
			Geometry:      f.Geometry,
			Properties:    map[string]interface{}{"title": f.ID},
			Assets: []DescribedAsset{{
				Key:    "image",
				Asset:  DescribeRemote(fmt.Sprintf("https://example.com/%s.tif", f.ID), stac.MediaTypeGeoTIFF, stac.RoleData, 0),
				Extent: extent.New(f.Bound, srcExtent.CRS),
			}},
		})
	}
	return groups, nil
}

func (m testMapper) Subcollection(id string) CollectionMeta {
	return CollectionMeta{ID: id, Title: id, License: "CC0-1.0"}
}

func (m testMapper) Dataset() CollectionMeta {
	return CollectionMeta{ID: "test.data", Title: "test", License: "CC0-1.0"}
}

func (m testMapper) SourceSubcollections(string) []string {
	return []string{m.sub}
}

func featureCollection(ids ...string) string {
	features := ""
	for i, id := range ids {
		if i > 0 {
			features += ","
		}
		x := float64(15 + i)
		features += fmt.Sprintf(`{
  "type": "Feature",
  "geometry": {"type": "Polygon", "coordinates": [[[%[1]f,50],[%[2]f,50],[%[2]f,51],[%[1]f,51],[%[1]f,50]]]},
  "properties": {"gml_id": %[3]q}
}`, x, x+1, id)
	}
	return `{"type": "FeatureCollection", "features": [` + features + `]}`
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunnerBuildsTree(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "2020.geojson", featureCollection("sheet-1", "sheet-2"))
	writeSource(t, dir, ".hidden", "skipped entirely")

	mapper := testMapper{sub: "test.data.2020"}
	runner := NewRunner(Config{InputDir: dir, Catalog: CatalogMeta{ID: "test", Title: "t", Description: "d"}}, mapper)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Report.ItemsBuilt)
	assert.Equal(t, 2, result.Report.CollectionsBuilt)
	assert.Empty(t, result.Report.Warnings)
	assert.Equal(t, "test", result.Catalog.ID)

	require.Len(t, result.Root.Children, 1)
	sub := result.Root.Children[0]
	assert.Equal(t, "test.data.2020", sub.Collection.ID)
	require.Len(t, sub.Items, 2)
	assert.Equal(t, "sheet-1", sub.Items[0].Item.ID)
	assert.True(t, result.Root.Extent.Contains(sub.Extent))

	// the source file is attached as a collection-level index asset
	require.Len(t, sub.Collection.Assets, 1)
	index, ok := sub.Collection.Assets["index-2020"]
	require.True(t, ok)
	assert.Equal(t, stac.MediaTypeGeoJSON, index.MediaType)

	assert.True(t, result.SourcePresent("test.data.2020", "sheet-1"))
	assert.False(t, result.SourcePresent("test.data.2019", "ghost"))
}

func TestRunnerSkipsUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "2020.geojson", featureCollection("sheet-1"))
	writeSource(t, dir, "broken.bin", "not a recognized format")

	mapper := testMapper{sub: "test.data.2020"}
	runner := NewRunner(Config{InputDir: dir, Catalog: CatalogMeta{ID: "test"}}, mapper)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Report.ItemsBuilt)
	require.Len(t, result.Report.Warnings, 1)
	assert.Contains(t, result.Report.Warnings[0].Source, "broken.bin")

	// a present-but-unprocessed source keeps its entities alive
	assert.True(t, result.SourcePresent("test.data.2020", "previously-built-sheet"))
}

func TestRunnerDuplicateItemIDSkipsCollection(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "2020.geojson", featureCollection("sheet-1", "sheet-1"))

	mapper := testMapper{sub: "test.data.2020"}
	runner := NewRunner(Config{InputDir: dir, Catalog: CatalogMeta{ID: "test"}}, mapper)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	// the collection is skipped with a warning, siblings unaffected
	assert.Empty(t, result.Root.Children)
	require.NotEmpty(t, result.Report.Warnings)
	assert.Contains(t, result.Report.Warnings[0].Reason, "duplicate")

	// its previously persisted entities must not be removed
	assert.True(t, result.SourcePresent("test.data.2020", "sheet-1"))
}

func TestRunnerCancelled(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "2020.geojson", featureCollection("sheet-1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(Config{InputDir: dir, Catalog: CatalogMeta{ID: "test"}}, testMapper{sub: "s"})
	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
