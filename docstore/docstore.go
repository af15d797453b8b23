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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	once     sync.Once
	instance *Store
)

// Document is one persisted STAC document with the fields the API surface
// needs for routing and link building.
type Document struct {
	Type       string
	ID         string
	Title      string
	Collection string
	Body       []byte
}

// Store is an in-memory index over a persisted catalog directory. It is
// read-only once loaded; `serve` reloads by restarting.
type Store struct {
	catalog     Document
	collections map[string]Document
	colOrder    []string
	items       map[string]map[string]Document
	itemOrder   map[string][]string
}

// GetInstance loads the store from the configured catalog directory the
// first time it is called.
func GetInstance() *Store {
	once.Do(func() {
		dir := viper.GetString("catalog.dir")
		log.Debug().Str("dir", dir).Msg("loading catalog documents for the first time")
		var err error
		instance, err = Load(dir)
		if err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("failed to load catalog documents")
			os.Exit(66)
		}
	})
	return instance
}

// Load reads every JSON document under dir and indexes it by type.
func Load(dir string) (*Store, error) {
	s := &Store{
		collections: make(map[string]Document),
		items:       make(map[string]map[string]Document),
		itemOrder:   make(map[string][]string),
	}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		body, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		var header struct {
			Type       string                 `json:"type"`
			ID         string                 `json:"id"`
			Title      string                 `json:"title"`
			Collection string                 `json:"collection"`
			Properties map[string]interface{} `json:"properties"`
		}
		if err := json.Unmarshal(body, &header); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("skipping unparseable document")
			return nil
		}
		doc := Document{
			Type:       header.Type,
			ID:         header.ID,
			Title:      header.Title,
			Collection: header.Collection,
			Body:       body,
		}
		switch header.Type {
		case "Catalog":
			s.catalog = doc
		case "Collection":
			s.collections[doc.ID] = doc
			s.colOrder = append(s.colOrder, doc.ID)
		case "Feature":
			if doc.Title == "" {
				doc.Title, _ = header.Properties["title"].(string)
			}
			if s.items[doc.Collection] == nil {
				s.items[doc.Collection] = make(map[string]Document)
			}
			s.items[doc.Collection][doc.ID] = doc
			s.itemOrder[doc.Collection] = append(s.itemOrder[doc.Collection], doc.ID)
		default:
			log.Warn().Str("path", p).Str("type", header.Type).Msg("skipping document of unknown type")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog from %s: %w", dir, err)
	}
	if s.catalog.ID == "" {
		return nil, fmt.Errorf("no catalog document found under %s", dir)
	}

	sort.Strings(s.colOrder)
	for id := range s.itemOrder {
		sort.Strings(s.itemOrder[id])
	}
	log.Info().
		Str("catalog", s.catalog.ID).
		Int("collections", len(s.colOrder)).
		Msg("catalog documents loaded")
	return s, nil
}

// Catalog returns the root catalog document.
func (s *Store) Catalog() Document {
	return s.catalog
}

// Collections returns all collection documents ordered by id.
func (s *Store) Collections() []Document {
	out := make([]Document, 0, len(s.colOrder))
	for _, id := range s.colOrder {
		out = append(out, s.collections[id])
	}
	return out
}

// Collection looks up a single collection by id.
func (s *Store) Collection(id string) (Document, bool) {
	doc, ok := s.collections[id]
	return doc, ok
}

// Items returns the items of a collection ordered by id.
func (s *Store) Items(collectionID string) []Document {
	ids := s.itemOrder[collectionID]
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[collectionID][id])
	}
	return out
}

// Item looks up a single item by collection and id.
func (s *Store) Item(collectionID, id string) (Document, bool) {
	doc, ok := s.items[collectionID][id]
	return doc, ok
}
