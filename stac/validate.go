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
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var idRe = regexp.MustCompile(`^([a-zA-Z0-9\-_\.]+)$`)

// ValidateID checks that an entity id conforms to the STAC id format.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrBrokenLinkGraph)
	}
	if !idRe.MatchString(id) {
		return fmt.Errorf(`%w: id %q must conform to format '^([a-zA-Z0-9\-_\.]+)$'`, ErrBrokenLinkGraph, id)
	}
	return nil
}

// Node is the link-graph view of one document of the generated set, keyed
// by its path relative to the catalog root.
type Node struct {
	Path       string
	Type       string // Catalog, Collection or Feature
	ID         string
	Collection string // items only: the declared back-reference
	Links      []Link
}

// expectedKind maps a link relation to the document type its target must
// resolve to. Relations outside this map are not structural and are not
// validated against the document set.
var expectedKind = map[string][]string{
	RelRoot:   {"Catalog"},
	RelSelf:   {"Catalog", "Collection", "Feature"},
	RelParent: {"Catalog", "Collection"},
	RelChild:  {"Catalog", "Collection"},
	RelItem:   {"Feature"},
}

// ValidateLinkGraph checks the referential integrity of the whole document
// set: every structural link resolves to an existing document of the
// expected kind, no (source, relation, target) triple occurs twice, ids are
// well formed and unique in their scope, and item/collection references are
// bidirectionally consistent. Any violation returns ErrBrokenLinkGraph.
func ValidateLinkGraph(nodes []Node) error {
	byPath := make(map[string]*Node, len(nodes))
	collectionIDs := make(map[string]string, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if err := ValidateID(n.ID); err != nil {
			return fmt.Errorf("%s: %w", n.Path, err)
		}
		if _, ok := byPath[n.Path]; ok {
			return fmt.Errorf("%w: two documents share path %s", ErrBrokenLinkGraph, n.Path)
		}
		byPath[n.Path] = n
		if n.Type == "Collection" {
			if prev, ok := collectionIDs[n.ID]; ok {
				return fmt.Errorf("%w: collection id %s claimed by both %s and %s", ErrBrokenLinkGraph, n.ID, prev, n.Path)
			}
			collectionIDs[n.ID] = n.Path
		}
	}

	seen := make(map[string]struct{})
	for i := range nodes {
		n := &nodes[i]
		itemIDs := make(map[string]struct{})
		for _, link := range n.Links {
			kinds, structural := expectedKind[link.Rel]
			if !structural || isAbsoluteHref(link.Href) {
				continue
			}
			targetPath := resolveHref(n.Path, link.Href)
			target, ok := byPath[targetPath]
			if !ok {
				return fmt.Errorf("%w: %s link %q from %s resolves to missing document %s",
					ErrBrokenLinkGraph, link.Rel, link.Href, n.Path, targetPath)
			}
			if !kindMatches(target.Type, kinds) {
				return fmt.Errorf("%w: %s link from %s targets %s of kind %s, expected one of %v",
					ErrBrokenLinkGraph, link.Rel, n.Path, targetPath, target.Type, kinds)
			}
			triple := n.Path + "\x00" + link.Rel + "\x00" + targetPath
			if _, dup := seen[triple]; dup {
				return fmt.Errorf("%w: duplicate link (%s, %s, %s)", ErrBrokenLinkGraph, n.Path, link.Rel, targetPath)
			}
			seen[triple] = struct{}{}

			if link.Rel == RelItem {
				if _, dup := itemIDs[target.ID]; dup {
					return fmt.Errorf("%w: collection %s links item id %s twice", ErrBrokenLinkGraph, n.ID, target.ID)
				}
				itemIDs[target.ID] = struct{}{}
				if target.Collection != n.ID {
					return fmt.Errorf("%w: item %s is linked by collection %s but declares collection %q",
						ErrBrokenLinkGraph, target.ID, n.ID, target.Collection)
				}
			}
		}
	}

	// Every item's declared collection must exist and every item must be
	// reachable from it.
	linked := make(map[string]struct{})
	for i := range nodes {
		n := &nodes[i]
		for _, link := range n.Links {
			if link.Rel == RelItem {
				linked[resolveHref(n.Path, link.Href)] = struct{}{}
			}
		}
	}
	for i := range nodes {
		n := &nodes[i]
		if n.Type != "Feature" {
			continue
		}
		if _, ok := collectionIDs[n.Collection]; !ok {
			return fmt.Errorf("%w: item %s declares missing collection %q", ErrBrokenLinkGraph, n.ID, n.Collection)
		}
		if _, ok := linked[n.Path]; !ok {
			return fmt.Errorf("%w: item %s is not linked by any collection", ErrBrokenLinkGraph, n.ID)
		}
	}

	log.Debug().Int("documents", len(nodes)).Msg("link graph validated")
	return nil
}

func kindMatches(kind string, allowed []string) bool {
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}

func isAbsoluteHref(href string) bool {
	return strings.Contains(href, "://")
}

// resolveHref resolves a relative href against the directory of the
// document holding it.
func resolveHref(docPath, href string) string {
	return path.Clean(path.Join(path.Dir(docPath), href))
}
