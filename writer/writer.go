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
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"github.com/ttomasz/unofficial-gugik-stac/builder"
	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/jsonutil"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// SourceCheck reports whether the raw source behind a previously persisted
// entity still exists in the input tree. Entities whose source is gone are
// removed during reconciliation; the rest are preserved as "not yet
// reprocessed this run".
type SourceCheck func(collectionID, id string) bool

// WriteReport describes the outcome of a reconciling write.
type WriteReport struct {
	Inserted    []string `json:"inserted,omitempty"`
	Overwritten []string `json:"overwritten,omitempty"`
	Preserved   []string `json:"preserved,omitempty"`
	Removed     []string `json:"removed,omitempty"`
}

// Writer persists a built catalog to a target, merging it with whatever
// catalog is already persisted there.
type Writer struct {
	target Target
	check  SourceCheck
}

func New(target Target, check SourceCheck) *Writer {
	return &Writer{target: target, check: check}
}

type existingDoc struct {
	body   []byte
	header docHeader
	broken bool
}

// docHeader is the subset of any STAC document the reconciliation needs.
type docHeader struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Title      string                 `json:"title"`
	Collection string                 `json:"collection"`
	Links      []stac.Link            `json:"links"`
	Bbox       []float64              `json:"bbox"`
	Properties map[string]interface{} `json:"properties"`
	Extent     *stac.Extent           `json:"extent"`
}

// Write performs the three-way reconciliation between the freshly built
// catalog and the persisted one, validates the resulting link graph, and
// commits the document set. On any validation failure nothing is
// persisted and the previous catalog stays untouched.
func (w *Writer) Write(ctx context.Context, result *builder.Result) (*WriteReport, error) {
	existing, err := w.readExisting(ctx)
	if err != nil {
		return nil, err
	}

	catalog := result.Catalog
	root := result.Root

	catalogRel := "catalog.json"
	rootDir := dirSegment(root.Collection.ID, catalog.ID)
	rootRel := rootDir + "/collection.json"

	subRels := make(map[string]*builder.BuiltCollection, len(root.Children))
	newRels := map[string]struct{}{catalogRel: {}, rootRel: {}}
	for i := range root.Children {
		sub := &root.Children[i]
		subRel := rootDir + "/" + dirSegment(sub.Collection.ID, root.Collection.ID) + "/collection.json"
		subRels[subRel] = sub
		newRels[subRel] = struct{}{}
		for _, item := range sub.Items {
			newRels[path.Dir(subRel)+"/"+item.Item.ID+".json"] = struct{}{}
		}
	}

	// Classify previously persisted documents that the new build does not
	// produce: preserved when their raw source still exists, removed when
	// it is confirmed absent.
	report := &WriteReport{}
	preserved := make(map[string]existingDoc)
	for rel, old := range existing {
		if _, ok := newRels[rel]; ok {
			continue
		}
		if old.broken {
			log.Warn().Str("path", rel).Msg("removing unparseable persisted document")
			report.Removed = append(report.Removed, rel)
			continue
		}
		keep := false
		if w.check != nil {
			switch old.header.Type {
			case "Collection":
				keep = w.check(old.header.ID, old.header.ID)
			default:
				keep = w.check(old.header.Collection, old.header.ID)
			}
		}
		if keep {
			preserved[rel] = old
		} else {
			report.Removed = append(report.Removed, rel)
		}
	}

	// A preserved item needs a preserved or rebuilt parent; otherwise it
	// would dangle and fail validation.
	for rel, old := range preserved {
		if old.header.Type != "Feature" {
			continue
		}
		parent := path.Dir(rel) + "/collection.json"
		_, rebuilt := newRels[parent]
		_, kept := preserved[parent]
		if !rebuilt && !kept {
			delete(preserved, rel)
			report.Removed = append(report.Removed, rel)
		}
	}

	// Preserved entities must stay reachable and covered: rebuilt parent
	// collections get extra links and widened extents for them. Parents
	// that were themselves preserved already link and cover their members.
	extraItemLinks := make(map[string][]stac.Link)
	extraChildLinks := make(map[string][]stac.Link)
	for rel, old := range preserved {
		switch old.header.Type {
		case "Feature":
			parent := path.Dir(rel) + "/collection.json"
			sub, rebuilt := subRels[parent]
			if !rebuilt {
				continue
			}
			ext := extentFromItem(old.header)
			union, err := sub.Extent.Union(ext)
			if err == nil {
				sub.Extent = union
				sub.Collection.Extent = union.ToSTAC()
			}
			extraItemLinks[parent] = append(extraItemLinks[parent], stac.Link{
				Rel:   stac.RelItem,
				Type:  stac.MediaTypeGeoJSON,
				Title: titleOf(old.header),
				Href:  "./" + path.Base(rel),
			})
		case "Collection":
			ext := extentFromCollection(old.header)
			union, err := root.Extent.Union(ext)
			if err == nil {
				root.Extent = union
			}
			parent := parentRelOf(rel)
			extraChildLinks[parent] = append(extraChildLinks[parent], stac.Link{
				Rel:   stac.RelChild,
				Type:  stac.MediaTypeJSON,
				Title: old.header.Title,
				Href:  hrefBetween(parent, rel),
			})
		}
	}

	// Roll preserved-member coverage up into the root collection.
	rootExtent := root.Extent
	for i := range root.Children {
		union, err := rootExtent.Union(root.Children[i].Extent)
		if err != nil {
			return nil, err
		}
		rootExtent = union
	}
	root.Extent = rootExtent
	root.Collection.Extent = rootExtent.ToSTAC()

	// Serialize the built tree with its link graph.
	docs := make(map[string][]byte)

	catalog.Links = []stac.Link{{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: "./catalog.json"}}
	catalog.Links = stac.AddLinkTitled(catalog.Links, stac.RelChild, "./"+rootRel, root.Collection.Title, stac.MediaTypeJSON)
	catalog.Links = append(catalog.Links, extraChildLinks[catalogRel]...)
	sortLinks(catalog.Links)
	raw, err := marshalCanonical(catalog)
	if err != nil {
		return nil, err
	}
	docs[catalogRel] = raw

	rootCol := root.Collection
	rootCol.Links = []stac.Link{
		{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: "../catalog.json"},
		{Rel: stac.RelParent, Type: stac.MediaTypeJSON, Href: "../catalog.json"},
	}
	subRelSorted := make([]string, 0, len(subRels))
	for rel := range subRels {
		subRelSorted = append(subRelSorted, rel)
	}
	sort.Strings(subRelSorted)
	for _, rel := range subRelSorted {
		sub := subRels[rel]
		rootCol.Links = stac.AddLinkTitled(rootCol.Links, stac.RelChild, hrefBetween(rootRel, rel), sub.Collection.Title, stac.MediaTypeJSON)
	}
	rootCol.Links = append(rootCol.Links, extraChildLinks[rootRel]...)
	sortLinks(rootCol.Links)
	raw, err = marshalCanonical(rootCol)
	if err != nil {
		return nil, err
	}
	docs[rootRel] = raw

	for _, subRel := range subRelSorted {
		sub := subRels[subRel]
		col := sub.Collection
		col.Links = []stac.Link{
			{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: "../../catalog.json"},
			{Rel: stac.RelParent, Type: stac.MediaTypeJSON, Href: "../collection.json"},
		}
		for i := range sub.Items {
			item := &sub.Items[i].Item
			title, _ := item.Properties["title"].(string)
			col.Links = stac.AddLinkTitled(col.Links, stac.RelItem, "./"+item.ID+".json", title, stac.MediaTypeGeoJSON)
		}
		col.Links = append(col.Links, extraItemLinks[subRel]...)
		sortLinks(col.Links)
		raw, err = marshalCanonical(col)
		if err != nil {
			return nil, err
		}
		docs[subRel] = raw

		for i := range sub.Items {
			item := sub.Items[i].Item
			item.Links = []stac.Link{
				{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: "../../catalog.json"},
				{Rel: stac.RelParent, Type: stac.MediaTypeJSON, Href: "./collection.json"},
			}
			raw, err = marshalCanonical(item)
			if err != nil {
				return nil, err
			}
			docs[path.Dir(subRel)+"/"+item.ID+".json"] = raw
		}
	}

	// Three-way merge against the existing set.
	final := make(map[string][]byte, len(docs)+len(preserved))
	for rel, body := range docs {
		old, ok := existing[rel]
		if !ok || old.broken {
			final[rel] = body
			report.Inserted = append(report.Inserted, rel)
			continue
		}
		merged, err := jsonutil.Merge(body, old.body)
		if err != nil {
			// the persisted doc is not an object, new content wins
			final[rel] = body
		} else if final[rel], err = canonicalize(merged); err != nil {
			return nil, fmt.Errorf("canonicalize merged %s: %w", rel, err)
		}
		report.Overwritten = append(report.Overwritten, rel)
	}
	for rel, old := range preserved {
		final[rel] = old.body
		report.Preserved = append(report.Preserved, rel)
	}
	sort.Strings(report.Inserted)
	sort.Strings(report.Overwritten)
	sort.Strings(report.Preserved)
	sort.Strings(report.Removed)

	// Full integrity check before anything touches the target. A broken
	// graph aborts the write and leaves the previous catalog in place.
	nodes := make([]stac.Node, 0, len(final))
	for rel, body := range final {
		var h docHeader
		if err := json.Unmarshal(body, &h); err != nil {
			return nil, fmt.Errorf("%w: unparseable document %s: %w", stac.ErrBrokenLinkGraph, rel, err)
		}
		nodes = append(nodes, stac.Node{
			Path:       rel,
			Type:       h.Type,
			ID:         h.ID,
			Collection: h.Collection,
			Links:      h.Links,
		})
	}
	if err := stac.ValidateLinkGraph(nodes); err != nil {
		return nil, err
	}

	if err := w.target.Commit(ctx, final); err != nil {
		return nil, fmt.Errorf("persisting catalog: %w", err)
	}

	log.Info().
		Int("inserted", len(report.Inserted)).
		Int("overwritten", len(report.Overwritten)).
		Int("preserved", len(report.Preserved)).
		Int("removed", len(report.Removed)).
		Msg("catalog persisted")
	return report, nil
}

func (w *Writer) readExisting(ctx context.Context) (map[string]existingDoc, error) {
	rels, err := w.target.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing persisted catalog: %w", err)
	}
	out := make(map[string]existingDoc, len(rels))
	for _, rel := range rels {
		body, err := w.target.Read(ctx, rel)
		if err != nil {
			return nil, fmt.Errorf("reading persisted document %s: %w", rel, err)
		}
		doc := existingDoc{body: body}
		if err := json.Unmarshal(body, &doc.header); err != nil || doc.header.ID == "" {
			doc.broken = true
		}
		out[rel] = doc
	}
	return out, nil
}

// dirSegment derives the directory name for a collection from its id,
// stripping the parent id prefix: poland.gugik.ortho.2020 nests under
// poland.gugik.ortho as "2020".
func dirSegment(id, parentID string) string {
	if seg, ok := strings.CutPrefix(id, parentID+"."); ok && seg != "" {
		return seg
	}
	return id
}

// parentRelOf maps a collection document path to its parent document.
func parentRelOf(rel string) string {
	parentDir := path.Dir(path.Dir(rel))
	if parentDir == "." {
		return "catalog.json"
	}
	return parentDir + "/collection.json"
}

// hrefBetween returns the relative href pointing from one document to
// another within the set.
func hrefBetween(fromRel, toRel string) string {
	fromDir := path.Dir(fromRel)
	if fromDir == "." {
		return "./" + toRel
	}
	prefix := fromDir + "/"
	if rest, ok := strings.CutPrefix(toRel, prefix); ok {
		return "./" + rest
	}
	up := strings.Repeat("../", strings.Count(fromDir, "/")+1)
	return up + toRel
}

func titleOf(h docHeader) string {
	if t, ok := h.Properties["title"].(string); ok {
		return t
	}
	return h.Title
}

func extentFromItem(h docHeader) extent.Extent {
	if len(h.Bbox) < 4 {
		return extent.Extent{}
	}
	e := extent.New(orb.Bound{
		Min: orb.Point{h.Bbox[0], h.Bbox[1]},
		Max: orb.Point{h.Bbox[2], h.Bbox[3]},
	}, extent.CatalogCRS)
	if dt, ok := h.Properties["datetime"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, dt); err == nil {
			e = e.WithInterval(ts, ts)
		}
	}
	return e
}

func extentFromCollection(h docHeader) extent.Extent {
	if h.Extent == nil || len(h.Extent.Spatial.Bbox) == 0 || len(h.Extent.Spatial.Bbox[0]) < 4 {
		return extent.Extent{}
	}
	bbox := h.Extent.Spatial.Bbox[0]
	e := extent.New(orb.Bound{
		Min: orb.Point{bbox[0], bbox[1]},
		Max: orb.Point{bbox[2], bbox[3]},
	}, extent.CatalogCRS)
	if len(h.Extent.Temporal.Interval) > 0 && len(h.Extent.Temporal.Interval[0]) == 2 {
		interval := h.Extent.Temporal.Interval[0]
		var start, end time.Time
		var haveStart, haveEnd bool
		if interval[0] != nil {
			if ts, err := time.Parse(time.RFC3339, *interval[0]); err == nil {
				start, haveStart = ts, true
			}
		}
		if interval[1] != nil {
			if ts, err := time.Parse(time.RFC3339, *interval[1]); err == nil {
				end, haveEnd = ts, true
			}
		}
		if haveStart && haveEnd {
			e = e.WithInterval(start, end)
		}
	}
	return e
}

func sortLinks(links []stac.Link) {
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Rel != links[j].Rel {
			return links[i].Rel < links[j].Rel
		}
		return links[i].Href < links[j].Href
	})
}

// marshalCanonical serializes a document in the canonical form every
// persisted document uses: sorted object keys, two-space indent, trailing
// newline. Re-running over unchanged input reproduces identical bytes.
func marshalCanonical(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return canonicalize(raw)
}

func canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
