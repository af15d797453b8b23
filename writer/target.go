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

// Package writer persists the generated STAC document set, reconciling it
// against any previously persisted catalog on the output target.
package writer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Target is an output location for the catalog document set. The target is
// exclusively owned by the writer for the duration of a Write; there are
// no concurrent writers.
type Target interface {
	// List returns relative paths of all persisted documents, empty when
	// the target holds no catalog yet.
	List(ctx context.Context) ([]string, error)

	// Read returns the bytes of one persisted document.
	Read(ctx context.Context, rel string) ([]byte, error)

	// Commit replaces the persisted document set with docs, all or
	// nothing. When Commit returns an error the previous set is intact.
	Commit(ctx context.Context, docs map[string][]byte) error
}

// FSTarget persists the catalog as a directory tree of JSON documents.
// Commits stage the full set in a sibling directory and swap it in with
// renames, so readers never observe a half-written catalog.
type FSTarget struct {
	root string
}

func NewFSTarget(root string) (*FSTarget, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve output root: %w", err)
	}
	return &FSTarget{root: abs}, nil
}

func (t *FSTarget) List(_ context.Context) ([]string, error) {
	if _, err := os.Stat(t.root); os.IsNotExist(err) {
		return nil, nil
	}
	var rels []string
	err := filepath.WalkDir(t.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(t.root, p)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	return rels, err
}

func (t *FSTarget) Read(_ context.Context, rel string) ([]byte, error) {
	abs, err := t.safePath(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func (t *FSTarget) Commit(_ context.Context, docs map[string][]byte) error {
	stage := t.root + ".stage"
	if err := os.RemoveAll(stage); err != nil {
		return fmt.Errorf("clear stage dir: %w", err)
	}
	for rel, body := range docs {
		abs := filepath.Join(stage, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("stage %s: %w", rel, err)
		}
		if err := os.WriteFile(abs, body, 0o644); err != nil {
			return fmt.Errorf("stage %s: %w", rel, err)
		}
	}

	old := t.root + ".old"
	if _, err := os.Stat(t.root); err == nil {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("clear old dir: %w", err)
		}
		if err := os.Rename(t.root, old); err != nil {
			return fmt.Errorf("move previous catalog aside: %w", err)
		}
	}
	if err := os.Rename(stage, t.root); err != nil {
		// put the previous catalog back, the stage dir stays for debugging
		if _, statErr := os.Stat(old); statErr == nil {
			if restoreErr := os.Rename(old, t.root); restoreErr != nil {
				log.Error().Err(restoreErr).Msg("could not restore previous catalog")
			}
		}
		return fmt.Errorf("swap in staged catalog: %w", err)
	}
	if err := os.RemoveAll(old); err != nil {
		log.Warn().Err(err).Str("dir", old).Msg("could not remove previous catalog copy")
	}
	return nil
}

// safePath rejects relative paths that escape the output root.
func (t *FSTarget) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("path escapes output root: %s", rel)
	}
	return filepath.Join(t.root, cleaned), nil
}
