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

// Package builder turns opened sources into STAC items and collections.
package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ttomasz/unofficial-gugik-stac/extent"
	"github.com/ttomasz/unofficial-gugik-stac/source"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// DescribedAsset pairs a STAC asset with the extent it covers, so the item
// assembler can merge extents without re-opening the source.
type DescribedAsset struct {
	Key    string
	Asset  stac.Asset
	Extent extent.Extent
}

// Descriptor maps physical files to STAC assets. Checksum computation is
// optional and lazy: hashing a large partition happens at most once per
// path, when first requested, and never blocks describing other assets.
type Descriptor struct {
	Checksums bool

	mu    sync.Mutex
	cache map[string]*lazyChecksum
}

type lazyChecksum struct {
	path string
	once sync.Once
	sum  string
	err  error
}

// multihash identifier for sha2-256 with a 32 byte digest, required by the
// STAC file extension
const multihashSha256 = "1220"

func (l *lazyChecksum) Value() (string, error) {
	l.once.Do(func() {
		fh, err := os.Open(l.path)
		if err != nil {
			l.err = err
			return
		}
		defer fh.Close()
		h := sha256.New()
		if _, err := io.Copy(h, fh); err != nil {
			l.err = err
			return
		}
		l.sum = multihashSha256 + hex.EncodeToString(h.Sum(nil))
	})
	return l.sum, l.err
}

// DescribeFile maps a local file to an asset with its size and, when
// enabled, checksum. Media type is detected with declared > sniffed >
// extension precedence; unrecognized files become generic data assets.
func (d *Descriptor) DescribeFile(path string, declared string, role string) (stac.Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stac.Asset{}, err
	}

	asset := stac.Asset{
		Href:      path,
		MediaType: source.Detect(path, declared),
		Roles:     []string{role},
		SizeBytes: info.Size(),
	}

	if d.Checksums {
		d.mu.Lock()
		if d.cache == nil {
			d.cache = make(map[string]*lazyChecksum)
		}
		lc, ok := d.cache[path]
		if !ok {
			lc = &lazyChecksum{path: path}
			d.cache[path] = lc
		}
		d.mu.Unlock()

		sum, err := lc.Value()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("checksum computation failed, continuing without")
		} else {
			asset.Checksum = sum
		}
	}

	return asset, nil
}

// DescribeRemote maps a remote reference (a download URL from a source
// attribute, or a service endpoint) to an asset. Size is taken from the
// source metadata when known; checksums are never computed for remote
// references.
func DescribeRemote(href string, mediaType string, role string, sizeBytes int64) stac.Asset {
	return stac.Asset{
		Href:      href,
		MediaType: mediaType,
		Roles:     []string{role},
		SizeBytes: sizeBytes,
	}
}
