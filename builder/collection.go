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
	"fmt"
	"sort"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// CollectionMeta is pass-through collection metadata: title, description,
// license and keywords are not derived from the data.
type CollectionMeta struct {
	ID          string
	Title       string
	Description string
	License     string
	Keywords    []string
}

// BuiltItem is an assembled item together with its catalog-CRS extent.
type BuiltItem struct {
	Item   stac.Item
	Extent extent.Extent
}

// BuiltCollection holds one aggregated collection, its member items and
// any child subcollections.
type BuiltCollection struct {
	Collection stac.Collection
	Extent     extent.Extent
	Items      []BuiltItem
	Children   []BuiltCollection
}

// AggregateCollection groups items sharing a dataset identity into a
// collection. The collection extent is the union of the member items'
// extents; aggregating zero items yields the undefined-extent sentinel.
// Two items sharing an id is an upstream grouping bug and fails the whole
// collection rather than silently overwriting one of them.
func AggregateCollection(meta CollectionMeta, items []BuiltItem) (BuiltCollection, error) {
	seen := make(map[string]struct{}, len(items))
	var union extent.Extent
	for i := range items {
		id := items[i].Item.ID
		if _, dup := seen[id]; dup {
			return BuiltCollection{}, fmt.Errorf("%w: %s in collection %s", stac.ErrDuplicateItemID, id, meta.ID)
		}
		seen[id] = struct{}{}

		var err error
		union, err = union.Union(items[i].Extent)
		if err != nil {
			return BuiltCollection{}, fmt.Errorf("item %s in collection %s: %w", id, meta.ID, err)
		}
		items[i].Item.Collection = meta.ID
	}

	sorted := make([]BuiltItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Item.ID < sorted[j].Item.ID })

	collection := stac.NewCollection(meta.ID, meta.Title, meta.Description, meta.License)
	collection.Keywords = meta.Keywords
	collection.Extent = union.ToSTAC()

	return BuiltCollection{
		Collection: collection,
		Extent:     union,
		Items:      sorted,
	}, nil
}

// AggregateParent rolls child subcollections up into their parent
// collection, unioning their extents.
func AggregateParent(meta CollectionMeta, children []BuiltCollection) (BuiltCollection, error) {
	seen := make(map[string]struct{}, len(children))
	var union extent.Extent
	for _, child := range children {
		if _, dup := seen[child.Collection.ID]; dup {
			return BuiltCollection{}, fmt.Errorf("%w: subcollection %s under %s", stac.ErrDuplicateItemID, child.Collection.ID, meta.ID)
		}
		seen[child.Collection.ID] = struct{}{}

		var err error
		union, err = union.Union(child.Extent)
		if err != nil {
			return BuiltCollection{}, fmt.Errorf("subcollection %s under %s: %w", child.Collection.ID, meta.ID, err)
		}
	}

	sorted := make([]BuiltCollection, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Collection.ID < sorted[j].Collection.ID })

	collection := stac.NewCollection(meta.ID, meta.Title, meta.Description, meta.License)
	collection.Keywords = meta.Keywords
	collection.Extent = union.ToSTAC()

	return BuiltCollection{
		Collection: collection,
		Extent:     union,
		Children:   sorted,
	}, nil
}
