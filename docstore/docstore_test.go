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

package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogSet(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	docs := map[string]string{
		"catalog.json":                `{"type": "Catalog", "id": "poland.gugik", "title": "Katalog"}`,
		"ortho/collection.json":       `{"type": "Collection", "id": "poland.gugik.ortho", "title": "Ortofotomapy"}`,
		"ortho/2020/collection.json":  `{"type": "Collection", "id": "poland.gugik.ortho.2020", "title": "2020"}`,
		"ortho/2020/sheet-2.json":     `{"type": "Feature", "id": "sheet-2", "collection": "poland.gugik.ortho.2020", "properties": {"title": "Arkusz 2"}}`,
		"ortho/2020/sheet-1.json":     `{"type": "Feature", "id": "sheet-1", "collection": "poland.gugik.ortho.2020", "properties": {"title": "Arkusz 1"}}`,
		"ortho/2020/notes.txt":        `not json, ignored by extension`,
		"ortho/2020/unparseable.json": `{"type": "Feature", "id":`,
	}
	for rel, body := range docs {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	store, err := Load(writeCatalogSet(t))
	require.NoError(t, err)

	assert.Equal(t, "poland.gugik", store.Catalog().ID)

	cols := store.Collections()
	require.Len(t, cols, 2)
	assert.Equal(t, "poland.gugik.ortho", cols[0].ID)
	assert.Equal(t, "poland.gugik.ortho.2020", cols[1].ID)

	items := store.Items("poland.gugik.ortho.2020")
	require.Len(t, items, 2)
	assert.Equal(t, "sheet-1", items[0].ID)
	assert.Equal(t, "Arkusz 1", items[0].Title)

	item, ok := store.Item("poland.gugik.ortho.2020", "sheet-2")
	require.True(t, ok)
	assert.Equal(t, "poland.gugik.ortho.2020", item.Collection)

	_, ok = store.Item("poland.gugik.ortho.2020", "ghost")
	assert.False(t, ok)
	_, ok = store.Collection("missing")
	assert.False(t, ok)
}

func TestLoadNoCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "collection.json"),
		[]byte(`{"type": "Collection", "id": "c"}`), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}
