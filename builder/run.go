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
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/source"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// Mapper translates opened sources into item groups. Implementations must
// be pure functions of the source path and attributes so group keys, and
// with them item ids, are identical on every run over the same input.
type Mapper interface {
	// MapSource converts one source's features into groups, each tagged
	// with the subcollection it belongs to. srcExtent carries the
	// source's native CRS for per-feature asset extents.
	MapSource(path string, ds source.Dataset, features []source.Feature, srcExtent extent.Extent) ([]Group, error)

	// Subcollection returns pass-through metadata for a subcollection id
	// emitted by MapSource.
	Subcollection(id string) CollectionMeta

	// Dataset returns metadata for the top-level collection all
	// subcollections roll up into.
	Dataset() CollectionMeta

	// SourceSubcollections names the subcollections a source path would
	// feed, derived from the path alone. Used to preserve previously
	// persisted entities when their source exists but failed to parse
	// this run.
	SourceSubcollections(path string) []string
}

// CatalogMeta is the root catalog's pass-through metadata.
type CatalogMeta struct {
	ID          string
	Title       string
	Description string
	Language    *stac.Language
}

// Config of a conversion run.
type Config struct {
	InputDir  string
	Workers   int
	Timeout   time.Duration
	Checksums bool
	Catalog   CatalogMeta
}

// Warning is a per-source or per-group failure that did not abort the run.
type Warning struct {
	Source string `json:"source,omitempty"`
	Group  string `json:"group,omitempty"`
	Reason string `json:"reason"`
}

// Report is the structured run result consumed by the CLI: exit non-zero
// only when a fatal error occurred, warnings alone exit zero.
type Report struct {
	CollectionsBuilt int       `json:"collections_built"`
	ItemsBuilt       int       `json:"items_built"`
	Warnings         []Warning `json:"warnings,omitempty"`
}

// Result of a conversion run: the built entity tree plus the presence
// oracle the writer's reconciliation consults.
type Result struct {
	Catalog stac.Catalog
	Root    BuiltCollection
	Report  Report

	builtItemIDs map[string]struct{}
	unprocessed  map[string]struct{}
}

// SourcePresent reports whether the raw source behind a previously
// persisted entity still exists in the input tree: either the entity was
// rebuilt this run, or its source file is present but was not successfully
// reprocessed.
func (r *Result) SourcePresent(collectionID, id string) bool {
	if _, ok := r.builtItemIDs[id]; ok {
		return true
	}
	if _, ok := r.unprocessed[collectionID]; ok {
		return true
	}
	_, ok := r.unprocessed[id]
	return ok
}

// Runner drives the conversion pipeline: an embarrassingly parallel
// per-source stage (bounded worker pool, pure per-unit work, no shared
// mutable state) joined by a barrier, then strictly sequential assembly,
// aggregation and reporting.
type Runner struct {
	cfg    Config
	mapper Mapper
	desc   *Descriptor
}

func NewRunner(cfg Config, mapper Mapper) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Runner{
		cfg:    cfg,
		mapper: mapper,
		desc:   &Descriptor{Checksums: cfg.Checksums},
	}
}

type unitResult struct {
	path   string
	groups []Group
	index  stac.Asset
	err    error
}

// Run executes the whole pipeline. Only context cancellation and scan
// errors are returned; per-source and per-group failures become warnings
// on the report and never abort sibling work.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	paths, err := r.scan()
	if err != nil {
		return nil, err
	}
	log.Info().Int("sources", len(paths)).Int("workers", r.cfg.Workers).Msg("starting conversion")

	units := make([]unitResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			units[i] = r.processSource(gctx, p)
			return nil
		})
	}
	// join barrier: assembly never observes a partially processed source
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		builtItemIDs: make(map[string]struct{}),
		unprocessed:  make(map[string]struct{}),
	}

	groupsBySub := make(map[string][]Group)
	indexAssets := make(map[string]map[string]stac.Asset)
	for _, unit := range units {
		if unit.err != nil {
			log.Warn().Err(unit.err).Str("source", unit.path).Msg("skipping source")
			result.Report.Warnings = append(result.Report.Warnings, Warning{
				Source: unit.path,
				Reason: unit.err.Error(),
			})
			for _, sub := range r.mapper.SourceSubcollections(unit.path) {
				result.unprocessed[sub] = struct{}{}
			}
			continue
		}
		for _, group := range unit.groups {
			groupsBySub[group.Subcollection] = append(groupsBySub[group.Subcollection], group)
		}
		for _, group := range unit.groups {
			if indexAssets[group.Subcollection] == nil {
				indexAssets[group.Subcollection] = make(map[string]stac.Asset)
			}
			indexAssets[group.Subcollection][indexAssetKey(unit.path)] = unit.index
		}
	}

	subIDs := make([]string, 0, len(groupsBySub))
	for id := range groupsBySub {
		subIDs = append(subIDs, id)
	}
	sort.Strings(subIDs)

	var children []BuiltCollection
	for _, subID := range subIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var items []BuiltItem
		for _, group := range groupsBySub[subID] {
			item, ext, err := AssembleItem(group)
			if err != nil {
				log.Warn().Err(err).Str("group", group.Key).Msg("skipping group")
				result.Report.Warnings = append(result.Report.Warnings, Warning{
					Group:  group.Key,
					Reason: err.Error(),
				})
				continue
			}
			items = append(items, BuiltItem{Item: item, Extent: ext})
		}

		built, err := AggregateCollection(r.mapper.Subcollection(subID), items)
		if err != nil {
			log.Warn().Err(err).Str("collection", subID).Msg("skipping collection")
			result.Report.Warnings = append(result.Report.Warnings, Warning{
				Group:  subID,
				Reason: err.Error(),
			})
			result.unprocessed[subID] = struct{}{}
			continue
		}
		built.Collection.Assets = indexAssets[subID]
		children = append(children, built)

		for _, item := range built.Items {
			result.builtItemIDs[item.Item.ID] = struct{}{}
		}
		result.builtItemIDs[built.Collection.ID] = struct{}{}
		result.Report.ItemsBuilt += len(built.Items)
		result.Report.CollectionsBuilt++
	}

	root, err := AggregateParent(r.mapper.Dataset(), children)
	if err != nil {
		return nil, err
	}
	result.Root = root
	result.builtItemIDs[root.Collection.ID] = struct{}{}
	result.Report.CollectionsBuilt++

	catalog := stac.NewCatalog(r.cfg.Catalog.ID, r.cfg.Catalog.Title, r.cfg.Catalog.Description)
	catalog.Language = r.cfg.Catalog.Language
	result.Catalog = catalog

	log.Info().
		Int("collections", result.Report.CollectionsBuilt).
		Int("items", result.Report.ItemsBuilt).
		Int("warnings", len(result.Report.Warnings)).
		Msg("conversion finished")
	return result, nil
}

// scan lists regular files in the input tree, sorted for determinism.
func (r *Runner) scan() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(r.cfg.InputDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning input tree %s: %w", r.cfg.InputDir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// processSource runs the per-source stage for one file under a bounded
// timeout. A unit that exceeds the timeout is marked failed and reported,
// never retried; transient I/O retries belong to the downloader which runs
// before this core starts.
func (r *Runner) processSource(ctx context.Context, path string) unitResult {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	done := make(chan unitResult, 1)
	go func() {
		done <- r.readSource(path)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return unitResult{path: path, err: fmt.Errorf("%w: %s: %w", stac.ErrUnreadableSource, path, ctx.Err())}
	}
}

func (r *Runner) readSource(path string) unitResult {
	ds, err := source.Open(path)
	if err != nil {
		return unitResult{path: path, err: err}
	}
	ext, err := extent.Resolve(ds)
	if err != nil {
		return unitResult{path: path, err: fmt.Errorf("%s: %w", path, err)}
	}
	features, err := ds.Features()
	if err != nil {
		return unitResult{path: path, err: fmt.Errorf("%w: %s: %w", stac.ErrUnreadableSource, path, err)}
	}
	groups, err := r.mapper.MapSource(path, ds, features, ext)
	if err != nil {
		return unitResult{path: path, err: fmt.Errorf("%s: %w", path, err)}
	}
	index, err := r.desc.DescribeFile(path, "", stac.RoleMetadata)
	if err != nil {
		return unitResult{path: path, err: fmt.Errorf("%w: %s: %w", stac.ErrUnreadableSource, path, err)}
	}
	return unitResult{path: path, groups: groups, index: index}
}

func indexAssetKey(path string) string {
	base := filepath.Base(path)
	return "index-" + ItemID(strings.TrimSuffix(base, filepath.Ext(base)))
}
