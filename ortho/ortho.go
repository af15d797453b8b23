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

// Package ortho maps the downloaded GUGiK orthophotomap index to the
// catalog's dataset layout: one collection of orthophotomaps split into
// per-year subcollections of sheets, plus a subcollection for the layers
// advertised by the WMS service.
package ortho

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ttomasz/unofficial-gugik-stac/builder"
	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/source"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

const (
	CatalogID    = "poland.gugik"
	CollectionID = CatalogID + ".ortho"
	ServicesID   = CollectionID + ".services"

	License = "CC0-1.0"
)

// BboxPoland is the initial spatial extent before any data is aggregated.
var BboxPoland = []float64{14.0745211117, 49.0273953314, 24.0299857927, 54.8515359564}

var keywords = []string{"ortofotomapa", "ortofoto", "zdjęcia lotnicze"}

var imageTypes = map[string]string{
	"B/W": "Odcienie szarości",
	"RGB": "Kolor",
	"CIR": "Bliska podczerwień",
}

var yearRe = regexp.MustCompile(`\d{4}`)

// source timestamps are local dates in Polish time
var warsaw = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		return time.FixedZone("CET", 60*60)
	}
	return loc
}()

// Mapper implements builder.Mapper for the orthophotomap index. All group
// keys derive from source attributes (sheet gml ids, layer names), never
// from processing order.
type Mapper struct{}

// Catalog is the default root catalog identity. The CLI lets flags
// override title and description, the id stays fixed.
func Catalog() builder.CatalogMeta {
	return builder.CatalogMeta{
		ID:          CatalogID,
		Title:       "Katalog otwartych danych GUGiK",
		Description: "Katalog STAC pozwalający przeglądać dane udostępniane przez Główny Urząd Geodezji i Kartografii.",
		Language: &stac.Language{
			Code:      "pl",
			Name:      "Polski",
			Alternate: "Polish",
			Dir:       "ltr",
		},
	}
}

func NewMapper() *Mapper {
	return &Mapper{}
}

func (m *Mapper) Dataset() builder.CollectionMeta {
	return builder.CollectionMeta{
		ID:          CollectionID,
		Title:       "Ortofotomapy",
		Description: "Kolekcja z arkuszami ortofotomap, które można pobrać. Podzielona latami.",
		License:     License,
		Keywords:    keywords,
	}
}

func (m *Mapper) Subcollection(id string) builder.CollectionMeta {
	if id == ServicesID {
		return builder.CollectionMeta{
			ID:          ServicesID,
			Title:       "Usługi przeglądania",
			Description: "Warstwy ortofotomapy udostępniane przez usługę WMS.",
			License:     License,
			Keywords:    keywords,
		}
	}
	year := strings.TrimPrefix(id, CollectionID+".")
	return builder.CollectionMeta{
		ID:          id,
		Title:       year,
		Description: fmt.Sprintf("Arkusze ortofotomapy z roku: %s", year),
		License:     License,
		Keywords:    keywords,
	}
}

func (m *Mapper) SourceSubcollections(path string) []string {
	if source.Detect(path, "") == stac.MediaTypeCapabilities {
		return []string{ServicesID}
	}
	if year := yearRe.FindString(path); year != "" {
		return []string{CollectionID + "." + year}
	}
	return nil
}

func (m *Mapper) MapSource(path string, ds source.Dataset, features []source.Feature, srcExtent extent.Extent) ([]builder.Group, error) {
	if source.Detect(path, "") == stac.MediaTypeCapabilities {
		return m.mapLayers(path, features, srcExtent)
	}
	return m.mapSheets(path, ds, features, srcExtent)
}

// mapSheets converts orthophotomap index features into one group per
// sheet. Every attribute the published index carries is passed through as
// an item property the way the original dataset documents them.
func (m *Mapper) mapSheets(path string, ds source.Dataset, features []source.Feature, srcExtent extent.Extent) ([]builder.Group, error) {
	groups := make([]builder.Group, 0, len(features))
	for _, f := range features {
		year, ok := featureYear(f, path)
		if !ok {
			return nil, fmt.Errorf("could not find year for feature %s in akt_rok column or file name", f.ID)
		}

		props := map[string]interface{}{}
		assetExtent := extent.New(f.Bound, srcExtent.CRS)

		timePosition := asString(f.Properties["timePosition"])
		if ts, err := parseLocalDate(timePosition); err == nil {
			props["datetime"] = ts.UTC().Format(time.RFC3339)
			assetExtent = assetExtent.WithInterval(ts, ts.Add(24*time.Hour-time.Microsecond))
		}

		kolor := asString(f.Properties["kolor"])
		zrodlo := asString(f.Properties["zrodlo_danych"])
		godlo := asString(f.Properties["godlo"])
		props["title"] = fmt.Sprintf("%s: %s - %s - %s", zrodlo, godlo, timePosition, kolor)
		props["description"] = fmt.Sprintf(`%s
- rodzaj zdjęcia: %s (%s)
- data zdjęcia: %s
- data przyjęcia do zasobu: %s
- id obszaru: %s
- czy arkusz w pełni wypełniony: %s
- numer zgłoszenia: %s
- moduł archiwizacji: %s
`,
			zrodlo,
			imageTypes[kolor], kolor,
			timePosition,
			asString(f.Properties["dt_pzgik|timePosition"]),
			godlo,
			asString(f.Properties["czy_ark_wypelniony"]),
			asString(f.Properties["nr_zglosz"]),
			asString(f.Properties["modul_archiwizacji"]),
		)
		if gsd, ok := asFloat(f.Properties["piksel"]); ok {
			props["gsd"] = gsd
		}
		if code, ok := extent.CRSNames[asString(f.Properties["uklad_xy"])]; ok {
			props["proj:code"] = code
		}

		var sizeBytes int64
		if mb, ok := asFloat(f.Properties["wlk_pliku_MB"]); ok {
			sizeBytes = int64(mb * 1024 * 1024)
		}

		href := asString(f.Properties["url_do_pobrania"])
		if href == "" {
			return nil, fmt.Errorf("feature %s has no download url", f.ID)
		}

		groups = append(groups, builder.Group{
			Subcollection: fmt.Sprintf("%s.%d", CollectionID, year),
			Key:           f.ID,
			Geometry:      f.Geometry,
			Properties:    props,
			Assets: []builder.DescribedAsset{
				{
					Key:    "image",
					Asset:  builder.DescribeRemote(href, stac.MediaTypeGeoTIFF, stac.RoleData, sizeBytes),
					Extent: assetExtent,
				},
			},
		})
	}
	return groups, nil
}

// mapLayers converts WMS-advertised layers into one group per layer. The
// declared bounding boxes are trusted as-is.
func (m *Mapper) mapLayers(path string, features []source.Feature, srcExtent extent.Extent) ([]builder.Group, error) {
	groups := make([]builder.Group, 0, len(features))
	for _, f := range features {
		props := map[string]interface{}{
			"title": asString(f.Properties["title"]),
		}
		if desc := asString(f.Properties["description"]); desc != "" {
			props["description"] = desc
		}

		assetExtent := extent.New(f.Bound, srcExtent.CRS)
		if start, end, ok := parseTimeDimension(asString(f.Properties["time"])); ok {
			props["datetime"] = start.UTC().Format(time.RFC3339)
			assetExtent = assetExtent.WithInterval(start, end)
		}

		groups = append(groups, builder.Group{
			Subcollection: ServicesID,
			Key:           f.ID,
			Geometry:      f.Geometry,
			Properties:    props,
			Assets: []builder.DescribedAsset{
				{
					Key:    "capabilities",
					Asset:  builder.DescribeRemote(path, stac.MediaTypeCapabilities, stac.RoleMetadata, 0),
					Extent: assetExtent,
				},
			},
		})
	}
	return groups, nil
}

// featureYear finds the acquisition year: the akt_rok attribute when
// present, otherwise the first four-digit run in the source path.
func featureYear(f source.Feature, path string) (int, bool) {
	if year, ok := asFloat(f.Properties["akt_rok"]); ok && year > 0 {
		return int(year), true
	}
	if m := yearRe.FindString(path); m != "" {
		year, err := strconv.Atoi(m)
		if err == nil {
			return year, true
		}
	}
	return 0, false
}

// parseLocalDate interprets a source timestamp as a local Polish date.
func parseLocalDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time position")
	}
	if ts, err := time.ParseInLocation("2006-01-02", value, warsaw); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

// parseTimeDimension parses a WMS time dimension of the form
// "start/end/period" or a single instant.
func parseTimeDimension(value string) (time.Time, time.Time, bool) {
	if value == "" {
		return time.Time{}, time.Time{}, false
	}
	parts := strings.Split(strings.TrimSpace(value), "/")
	start, err := parseLocalDate(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end := start
	if len(parts) > 1 {
		if e, err := parseLocalDate(strings.TrimSpace(parts[1])); err == nil {
			end = e
		}
	}
	return start, end, true
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
