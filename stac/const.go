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

// Version is the STAC spec version every generated document declares.
const Version = "1.1.0"

// Extensions used by generated documents.
var Extensions = []string{
	"https://stac-extensions.github.io/projection/v2.0.0/schema.json",
	"https://stac-extensions.github.io/language/v1.0.0/schema.json",
	"https://stac-extensions.github.io/file/v2.1.0/schema.json",
}

// Media types used in links and assets.
const (
	MediaTypeJSON         = "application/json"
	MediaTypeGeoJSON      = "application/geo+json"
	MediaTypeGeoTIFF      = "image/tiff; application=geotiff"
	MediaTypeGeoparquet   = "application/vnd.apache.parquet"
	MediaTypeFlatGeobuf   = "application/vnd.flatgeobuf"
	MediaTypeCapabilities = "application/xml"
	MediaTypeOther        = "application/octet-stream"
)

// Link relations used in the generated link graph.
const (
	RelRoot   = "root"
	RelSelf   = "self"
	RelParent = "parent"
	RelChild  = "child"
	RelItem   = "item"
)

// Asset roles.
const (
	RoleData      = "data"
	RoleMetadata  = "metadata"
	RoleThumbnail = "thumbnail"
)
