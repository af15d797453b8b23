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

package handler

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dir := t.TempDir()
	docs := map[string]string{
		"catalog.json":               `{"type": "Catalog", "id": "poland.gugik", "links": [{"rel": "root", "type": "application/json", "href": "./catalog.json"}]}`,
		"ortho/collection.json":      `{"type": "Collection", "id": "poland.gugik.ortho", "title": "Ortofotomapy", "links": []}`,
		"ortho/2020/collection.json": `{"type": "Collection", "id": "poland.gugik.ortho.2020", "title": "2020", "links": []}`,
		"ortho/2020/sheet-1.json":    `{"type": "Feature", "id": "sheet-1", "collection": "poland.gugik.ortho.2020", "properties": {"title": "Arkusz 1"}, "links": []}`,
		"ortho/2020/sheet-2.json":    `{"type": "Feature", "id": "sheet-2", "collection": "poland.gugik.ortho.2020", "properties": {"title": "Arkusz 2"}, "links": []}`,
	}
	for rel, body := range docs {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	viper.Set("catalog.dir", dir)

	app := fiber.New(fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	app.Get("/api/stac/v1/", Catalog)
	app.Get("/api/stac/v1/conformance", Conformance)
	app.Get("/api/stac/v1/collections", Collections)
	app.Get("/api/stac/v1/collections/:collectionId", Collection)
	app.Get("/api/stac/v1/collections/:collectionId/items", Items)
	app.Get("/api/stac/v1/collections/:collectionId/items/:itemId", Item)
	return app
}

func getJSON(t *testing.T, app *fiber.App, url string, wantStatus int) map[string]interface{} {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, wantStatus, resp.StatusCode, url)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &doc), url)
	return doc
}

func TestCatalogLanding(t *testing.T) {
	app := newTestApp(t)

	doc := getJSON(t, app, "/api/stac/v1/", fiber.StatusOK)
	assert.Equal(t, "poland.gugik", doc["id"])

	links := doc["links"].([]interface{})
	var childHrefs []string
	for _, l := range links {
		link := l.(map[string]interface{})
		if link["rel"] == "child" {
			childHrefs = append(childHrefs, link["href"].(string))
		}
	}
	assert.Contains(t, childHrefs, "http://example.com/api/stac/v1/collections/poland.gugik.ortho.2020")
}

func TestConformance(t *testing.T) {
	app := newTestApp(t)
	doc := getJSON(t, app, "/api/stac/v1/conformance", fiber.StatusOK)
	assert.NotEmpty(t, doc["conformsTo"])
}

func TestCollectionEndpoints(t *testing.T) {
	app := newTestApp(t)

	list := getJSON(t, app, "/api/stac/v1/collections", fiber.StatusOK)
	assert.Len(t, list["collections"], 2)

	col := getJSON(t, app, "/api/stac/v1/collections/poland.gugik.ortho.2020", fiber.StatusOK)
	assert.Equal(t, "poland.gugik.ortho.2020", col["id"])

	missing := getJSON(t, app, "/api/stac/v1/collections/nope", fiber.StatusNotFound)
	assert.Equal(t, "NotFound", missing["code"])
}

func TestItemEndpoints(t *testing.T) {
	app := newTestApp(t)

	fc := getJSON(t, app, "/api/stac/v1/collections/poland.gugik.ortho.2020/items", fiber.StatusOK)
	assert.Equal(t, "FeatureCollection", fc["type"])
	assert.Len(t, fc["features"], 2)

	limited := getJSON(t, app, "/api/stac/v1/collections/poland.gugik.ortho.2020/items?limit=1", fiber.StatusOK)
	assert.Len(t, limited["features"], 1)

	// the 422 payload must survive, not be overwritten by a feature list
	bad := getJSON(t, app, "/api/stac/v1/collections/poland.gugik.ortho.2020/items?limit=nope", fiber.StatusUnprocessableEntity)
	assert.Equal(t, "ParameterError", bad["code"])
	assert.NotContains(t, bad, "features")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/stac/v1/collections/poland.gugik.ortho.2020/items/sheet-1", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	getJSON(t, app, "/api/stac/v1/collections/poland.gugik.ortho.2020/items/ghost", fiber.StatusNotFound)
}
