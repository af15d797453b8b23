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

package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttomasz/unofficial-gugik-stac/builder"
	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

func sheet(t *testing.T, sub, key string, minX float64) builder.BuiltItem {
	t.Helper()
	item, ext, err := builder.AssembleItem(builder.Group{
		Subcollection: sub,
		Key:           key,
		Properties:    map[string]interface{}{"title": key},
		Assets: []builder.DescribedAsset{{
			Key:    "image",
			Asset:  builder.DescribeRemote("https://example.com/"+key+".tif", stac.MediaTypeGeoTIFF, stac.RoleData, 0),
			Extent: extent.New(orb.Bound{Min: orb.Point{minX, 50}, Max: orb.Point{minX + 1, 51}}, extent.CatalogCRS),
		}},
	})
	require.NoError(t, err)
	return builder.BuiltItem{Item: item, Extent: ext}
}

func buildResult(t *testing.T, years map[string][]builder.BuiltItem) *builder.Result {
	t.Helper()
	var children []builder.BuiltCollection
	for year, items := range years {
		sub, err := builder.AggregateCollection(builder.CollectionMeta{
			ID: "poland.gugik.ortho." + year, Title: year, License: "CC0-1.0",
		}, items)
		require.NoError(t, err)
		children = append(children, sub)
	}
	root, err := builder.AggregateParent(builder.CollectionMeta{
		ID: "poland.gugik.ortho", Title: "Ortofotomapy", License: "CC0-1.0",
	}, children)
	require.NoError(t, err)

	return &builder.Result{
		Catalog: stac.NewCatalog("poland.gugik", "Katalog", "testowy katalog"),
		Root:    root,
	}
}

func keepAll(string, string) bool   { return true }
func removeAll(string, string) bool { return false }

func newFSWriter(t *testing.T, dir string, check SourceCheck) *Writer {
	t.Helper()
	target, err := NewFSTarget(dir)
	require.NoError(t, err)
	return New(target, check)
}

func readDoc(t *testing.T, dir, rel string) map[string]interface{} {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func docLinks(doc map[string]interface{}) []map[string]interface{} {
	raw, _ := doc["links"].([]interface{})
	out := make([]map[string]interface{}, 0, len(raw))
	for _, l := range raw {
		out = append(out, l.(map[string]interface{}))
	}
	return out
}

func hasLink(doc map[string]interface{}, rel, href string) bool {
	for _, l := range docLinks(doc) {
		if l["rel"] == rel && l["href"] == href {
			return true
		}
	}
	return false
}

func TestWriteInsertsDocumentSet(t *testing.T) {
	dir := t.TempDir()
	w := newFSWriter(t, dir, keepAll)

	result := buildResult(t, map[string][]builder.BuiltItem{
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
	})
	report, err := w.Write(context.Background(), result)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"catalog.json",
		"ortho/collection.json",
		"ortho/2020/collection.json",
		"ortho/2020/sheet-1.json",
	}, report.Inserted)
	assert.Empty(t, report.Overwritten)
	assert.Empty(t, report.Removed)

	catalog := readDoc(t, dir, "catalog.json")
	assert.Equal(t, "poland.gugik", catalog["id"])
	assert.True(t, hasLink(catalog, stac.RelChild, "./ortho/collection.json"))

	col := readDoc(t, dir, "ortho/2020/collection.json")
	assert.True(t, hasLink(col, stac.RelItem, "./sheet-1.json"))
	assert.True(t, hasLink(col, stac.RelParent, "../collection.json"))

	item := readDoc(t, dir, "ortho/2020/sheet-1.json")
	assert.Equal(t, "poland.gugik.ortho.2020", item["collection"])
}

func TestWriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := newFSWriter(t, dir, keepAll)

	build := func() *builder.Result {
		return buildResult(t, map[string][]builder.BuiltItem{
			"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15), sheet(t, "poland.gugik.ortho.2020", "sheet-2", 16)},
		})
	}

	_, err := w.Write(context.Background(), build())
	require.NoError(t, err)
	first := map[string][]byte{}
	for _, rel := range []string{"catalog.json", "ortho/collection.json", "ortho/2020/collection.json", "ortho/2020/sheet-1.json", "ortho/2020/sheet-2.json"} {
		raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		first[rel] = raw
	}

	report, err := w.Write(context.Background(), build())
	require.NoError(t, err)
	assert.Empty(t, report.Inserted)
	assert.Empty(t, report.Removed)
	assert.Len(t, report.Overwritten, 5)

	for rel, want := range first {
		raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(raw), rel)
	}
}

func TestWriteOverwriteKeepsForeignKeys(t *testing.T) {
	dir := t.TempDir()
	w := newFSWriter(t, dir, keepAll)

	build := func() *builder.Result {
		return buildResult(t, map[string][]builder.BuiltItem{
			"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
		})
	}
	_, err := w.Write(context.Background(), build())
	require.NoError(t, err)

	// hand-edit the persisted item with an out-of-band property
	itemPath := filepath.Join(dir, "ortho", "2020", "sheet-1.json")
	doc := readDoc(t, dir, "ortho/2020/sheet-1.json")
	doc["properties"].(map[string]interface{})["annotation"] = "manual note"
	edited, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(itemPath, edited, 0o644))

	_, err = w.Write(context.Background(), build())
	require.NoError(t, err)

	after := readDoc(t, dir, "ortho/2020/sheet-1.json")
	props := after["properties"].(map[string]interface{})
	assert.Equal(t, "manual note", props["annotation"])
	assert.Equal(t, "sheet-1", props["title"])
}

func TestWriteRemovesWhenSourceGone(t *testing.T) {
	dir := t.TempDir()

	_, err := newFSWriter(t, dir, keepAll).Write(context.Background(), buildResult(t, map[string][]builder.BuiltItem{
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15), sheet(t, "poland.gugik.ortho.2020", "sheet-2", 16)},
	}))
	require.NoError(t, err)

	report, err := newFSWriter(t, dir, removeAll).Write(context.Background(), buildResult(t, map[string][]builder.BuiltItem{
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
	}))
	require.NoError(t, err)

	assert.Contains(t, report.Removed, "ortho/2020/sheet-2.json")
	_, statErr := os.Stat(filepath.Join(dir, "ortho", "2020", "sheet-2.json"))
	assert.True(t, os.IsNotExist(statErr))

	col := readDoc(t, dir, "ortho/2020/collection.json")
	assert.True(t, hasLink(col, stac.RelItem, "./sheet-1.json"))
	assert.False(t, hasLink(col, stac.RelItem, "./sheet-2.json"))
}

func TestWritePreservesWhenSourcePresent(t *testing.T) {
	dir := t.TempDir()

	_, err := newFSWriter(t, dir, keepAll).Write(context.Background(), buildResult(t, map[string][]builder.BuiltItem{
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15), sheet(t, "poland.gugik.ortho.2020", "sheet-2", 22)},
	}))
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(dir, "ortho", "2020", "sheet-2.json"))
	require.NoError(t, err)

	// sheet-2's source still exists but was not reprocessed this run
	report, err := newFSWriter(t, dir, keepAll).Write(context.Background(), buildResult(t, map[string][]builder.BuiltItem{
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
	}))
	require.NoError(t, err)
	assert.Contains(t, report.Preserved, "ortho/2020/sheet-2.json")

	// preserved byte-identical
	after, err := os.ReadFile(filepath.Join(dir, "ortho", "2020", "sheet-2.json"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	// the rebuilt collection still links it and still covers it
	col := readDoc(t, dir, "ortho/2020/collection.json")
	assert.True(t, hasLink(col, stac.RelItem, "./sheet-2.json"))

	spatial := col["extent"].(map[string]interface{})["spatial"].(map[string]interface{})
	bbox := spatial["bbox"].([]interface{})[0].([]interface{})
	assert.Equal(t, 23.0, bbox[2].(float64))
}

func TestWritePreservesWholeSubcollection(t *testing.T) {
	dir := t.TempDir()

	_, err := newFSWriter(t, dir, keepAll).Write(context.Background(), buildResult(t, map[string][]builder.BuiltItem{
		"2019": {sheet(t, "poland.gugik.ortho.2019", "old-sheet", 20)},
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
	}))
	require.NoError(t, err)

	report, err := newFSWriter(t, dir, keepAll).Write(context.Background(), buildResult(t, map[string][]builder.BuiltItem{
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
	}))
	require.NoError(t, err)

	assert.Contains(t, report.Preserved, "ortho/2019/collection.json")
	assert.Contains(t, report.Preserved, "ortho/2019/old-sheet.json")

	root := readDoc(t, dir, "ortho/collection.json")
	assert.True(t, hasLink(root, stac.RelChild, "./2019/collection.json"))
	assert.True(t, hasLink(root, stac.RelChild, "./2020/collection.json"))
}

func TestWriteRemovesOrphanedItems(t *testing.T) {
	dir := t.TempDir()

	_, err := newFSWriter(t, dir, keepAll).Write(context.Background(), buildResult(t, map[string][]builder.BuiltItem{
		"2019": {sheet(t, "poland.gugik.ortho.2019", "old-sheet", 20)},
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
	}))
	require.NoError(t, err)

	// the 2019 collection's source is gone; its item claims to still
	// exist but may not dangle without its parent
	check := func(collectionID, id string) bool {
		return collectionID != "poland.gugik.ortho.2019" || id != "poland.gugik.ortho.2019"
	}
	report, err := newFSWriter(t, dir, check).Write(context.Background(), buildResult(t, map[string][]builder.BuiltItem{
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
	}))
	require.NoError(t, err)

	assert.Contains(t, report.Removed, "ortho/2019/collection.json")
	assert.Contains(t, report.Removed, "ortho/2019/old-sheet.json")
}

func TestWriteBrokenGraphAbortsBeforePersisting(t *testing.T) {
	dir := t.TempDir()
	w := newFSWriter(t, dir, keepAll)

	result := buildResult(t, map[string][]builder.BuiltItem{
		"2020": {sheet(t, "poland.gugik.ortho.2020", "sheet-1", 15)},
	})
	// break the item/collection back-reference
	result.Root.Children[0].Items[0].Item.Collection = "poland.gugik.ortho.1999"

	_, err := w.Write(context.Background(), result)
	require.ErrorIs(t, err, stac.ErrBrokenLinkGraph)

	// nothing persisted
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
