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
	json "github.com/goccy/go-json"
)

type Item struct {
	Type           string           `json:"type"`
	ID             string           `json:"id"`
	StacVersion    string           `json:"stac_version"`
	StacExtensions []string         `json:"stac_extensions,omitempty"`
	Bbox           []float64        `json:"bbox"`
	Geometry       *json.RawMessage `json:"geometry"`
	Properties     map[string]any   `json:"properties"`
	Assets         map[string]Asset `json:"assets"`
	Collection     string           `json:"collection"`
	Links          []Link           `json:"links"`
}

// Asset describes one physical file or service endpoint belonging to an
// item. Assets are immutable once the item owning them is assembled.
type Asset struct {
	Href      string   `json:"href"`
	MediaType string   `json:"type,omitempty"`
	Title     string   `json:"title,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	SizeBytes int64    `json:"file:size,omitempty"`
	Checksum  string   `json:"file:checksum,omitempty"`
}

// NewItem returns an item document with no assets or links yet.
func NewItem(id, collectionID string) Item {
	return Item{
		Type:           "Feature",
		ID:             id,
		StacVersion:    Version,
		StacExtensions: Extensions,
		Properties:     map[string]any{},
		Assets:         map[string]Asset{},
		Collection:     collectionID,
	}
}
