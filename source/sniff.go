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

package source

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// Detect determines the media type of a file with fixed precedence:
// explicitly declared type, then file signature, then extension.
// Unrecognized files map to the generic octet-stream type, never an error.
func Detect(path string, declared string) string {
	if declared != "" {
		return declared
	}
	if mt := sniffSignature(path); mt != "" {
		return mt
	}
	if mt := byExtension(path); mt != "" {
		return mt
	}
	return stac.MediaTypeOther
}

// magic numbers of the formats the downloader produces
var (
	magicParquet = []byte("PAR1")
	magicFgb     = []byte{0x66, 0x67, 0x62} // "fgb"
	magicTiffLE  = []byte{0x49, 0x49, 0x2A, 0x00}
	magicTiffBE  = []byte{0x4D, 0x4D, 0x00, 0x2A}
)

func sniffSignature(path string) string {
	fh, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer fh.Close()

	head := make([]byte, 16)
	n, err := fh.Read(head)
	if err != nil || n == 0 {
		return ""
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, magicParquet):
		return stac.MediaTypeGeoparquet
	case bytes.HasPrefix(head, magicFgb):
		return stac.MediaTypeFlatGeobuf
	case bytes.HasPrefix(head, magicTiffLE), bytes.HasPrefix(head, magicTiffBE):
		return stac.MediaTypeGeoTIFF
	case bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("<?xml")),
		bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("<WMS_Capabilities")):
		return stac.MediaTypeCapabilities
	case bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("{")):
		return stac.MediaTypeGeoJSON
	}
	return ""
}

func byExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".geoparquet":
		return stac.MediaTypeGeoparquet
	case ".fgb":
		return stac.MediaTypeFlatGeobuf
	case ".json", ".geojson":
		return stac.MediaTypeGeoJSON
	case ".xml":
		return stac.MediaTypeCapabilities
	case ".tif", ".tiff":
		return stac.MediaTypeGeoTIFF
	}
	return ""
}
