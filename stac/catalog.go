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

type Catalog struct {
	Type           string    `json:"type"`
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StacVersion    string    `json:"stac_version"`
	StacExtensions []string  `json:"stac_extensions,omitempty"`
	Language       *Language `json:"language,omitempty"`
	Links          []Link    `json:"links"`
}

// Language is the catalog-level field of the STAC language extension.
type Language struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Alternate string `json:"alternate,omitempty"`
	Dir       string `json:"dir,omitempty"`
}

// NewCatalog returns a root catalog document with no child links yet.
func NewCatalog(id, title, description string) Catalog {
	return Catalog{
		Type:           "Catalog",
		ID:             id,
		Title:          title,
		Description:    description,
		StacVersion:    Version,
		StacExtensions: Extensions,
	}
}
