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
)

type Link struct {
	Rel   string `json:"rel"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Href  string `json:"href"`
}

// AddLink appends a link with the given relation to the Links slice.
// rel is the name of the link relationship
// href is relative to the document holding the link so the generated
// document set stays self-contained
func AddLink(links []Link, rel string, href string, mimeType string) []Link {
	links = append(links, Link{
		Rel:  rel,
		Type: mimeType,
		Href: href,
	})

	return links
}

// AddLinkTitled is AddLink with a human readable title, used for child and
// item links shown by STAC browsers.
func AddLinkTitled(links []Link, rel string, href string, title string, mimeType string) []Link {
	links = append(links, Link{
		Rel:   rel,
		Type:  mimeType,
		Title: title,
		Href:  href,
	})

	return links
}

// APIHref builds an absolute href below the serve endpoint
// i.e. <base url>/api/stac/v1/<endpoint>
func APIHref(baseURL string, endpoint string) string {
	return fmt.Sprintf("%s/api/stac/v1%s", baseURL, endpoint)
}
