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

package stac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	for _, id := range []string{"poland.gugik", "ortho-2020", "PL_2180.a-b"} {
		assert.NoError(t, ValidateID(id), id)
	}
	for _, id := range []string{"", "ortho 2020", "sheet/71225", "łódź"} {
		assert.ErrorIs(t, ValidateID(id), ErrBrokenLinkGraph, id)
	}
}

// goodGraph is a minimal consistent document set: catalog, one collection,
// one subcollection with one item.
func goodGraph() []Node {
	return []Node{
		{
			Path: "catalog.json", Type: "Catalog", ID: "poland.gugik",
			Links: []Link{
				{Rel: RelRoot, Href: "./catalog.json"},
				{Rel: RelChild, Href: "./ortho/collection.json"},
			},
		},
		{
			Path: "ortho/collection.json", Type: "Collection", ID: "poland.gugik.ortho",
			Links: []Link{
				{Rel: RelRoot, Href: "../catalog.json"},
				{Rel: RelParent, Href: "../catalog.json"},
				{Rel: RelChild, Href: "./2020/collection.json"},
			},
		},
		{
			Path: "ortho/2020/collection.json", Type: "Collection", ID: "poland.gugik.ortho.2020",
			Links: []Link{
				{Rel: RelRoot, Href: "../../catalog.json"},
				{Rel: RelParent, Href: "../collection.json"},
				{Rel: RelItem, Href: "./sheet-1.json"},
			},
		},
		{
			Path: "ortho/2020/sheet-1.json", Type: "Feature", ID: "sheet-1",
			Collection: "poland.gugik.ortho.2020",
			Links: []Link{
				{Rel: RelRoot, Href: "../../catalog.json"},
				{Rel: RelParent, Href: "./collection.json"},
			},
		},
	}
}

func TestValidateLinkGraphOK(t *testing.T) {
	require.NoError(t, ValidateLinkGraph(goodGraph()))
}

func TestValidateLinkGraphDanglingLink(t *testing.T) {
	nodes := goodGraph()
	nodes[1].Links = append(nodes[1].Links, Link{Rel: RelChild, Href: "./2021/collection.json"})
	assert.ErrorIs(t, ValidateLinkGraph(nodes), ErrBrokenLinkGraph)
}

func TestValidateLinkGraphWrongKind(t *testing.T) {
	nodes := goodGraph()
	// item link pointing at a collection document
	nodes[2].Links = append(nodes[2].Links, Link{Rel: RelItem, Href: "../collection.json"})
	assert.ErrorIs(t, ValidateLinkGraph(nodes), ErrBrokenLinkGraph)
}

func TestValidateLinkGraphDuplicateLink(t *testing.T) {
	nodes := goodGraph()
	nodes[2].Links = append(nodes[2].Links, Link{Rel: RelItem, Href: "./sheet-1.json"})
	assert.ErrorIs(t, ValidateLinkGraph(nodes), ErrBrokenLinkGraph)
}

func TestValidateLinkGraphCollectionMismatch(t *testing.T) {
	nodes := goodGraph()
	nodes[3].Collection = "poland.gugik.ortho"
	assert.ErrorIs(t, ValidateLinkGraph(nodes), ErrBrokenLinkGraph)
}

func TestValidateLinkGraphUnlinkedItem(t *testing.T) {
	nodes := goodGraph()
	nodes = append(nodes, Node{
		Path: "ortho/2020/sheet-2.json", Type: "Feature", ID: "sheet-2",
		Collection: "poland.gugik.ortho.2020",
		Links: []Link{
			{Rel: RelRoot, Href: "../../catalog.json"},
			{Rel: RelParent, Href: "./collection.json"},
		},
	})
	assert.ErrorIs(t, ValidateLinkGraph(nodes), ErrBrokenLinkGraph)
}

func TestValidateLinkGraphDuplicateCollectionID(t *testing.T) {
	nodes := goodGraph()
	nodes = append(nodes, Node{
		Path: "ortho/other/collection.json", Type: "Collection", ID: "poland.gugik.ortho.2020",
		Links: []Link{{Rel: RelRoot, Href: "../../catalog.json"}},
	})
	assert.ErrorIs(t, ValidateLinkGraph(nodes), ErrBrokenLinkGraph)
}

func TestValidateLinkGraphIgnoresAbsoluteHrefs(t *testing.T) {
	nodes := goodGraph()
	nodes[0].Links = append(nodes[0].Links, Link{Rel: RelSelf, Href: "https://example.com/api/stac/v1"})
	assert.NoError(t, ValidateLinkGraph(nodes))
}
