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

package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ttomasz/unofficial-gugik-stac/common"
	"github.com/ttomasz/unofficial-gugik-stac/docstore"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// Conformance classes of the read-only browse surface.
var conformsTo = []string{
	"https://api.stacspec.org/v1.0.0/core",
	"https://api.stacspec.org/v1.0.0/collections",
	"https://api.stacspec.org/v1.0.0/browseable",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core",
}

// Catalog returns the landing page
// GET /api/stac/v1/
func Catalog(c *fiber.Ctx) error {
	store := docstore.GetInstance()
	baseURL := getBaseURL(c)
	self := stac.APIHref(baseURL, "")

	links := make([]stac.Link, 0, len(store.Collections())+4)
	links = append(links, stac.Link{Rel: stac.RelSelf, Type: stac.MediaTypeJSON, Href: self})
	links = append(links, stac.Link{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: self})
	links = append(links, stac.Link{
		Rel:  "data",
		Type: stac.MediaTypeJSON,
		Href: fmt.Sprintf("%s/collections", self),
	})
	links = append(links, stac.Link{
		Rel:   "conformance",
		Type:  stac.MediaTypeJSON,
		Title: "STAC conformance classes implemented by this server",
		Href:  fmt.Sprintf("%s/conformance", self),
	})
	for _, col := range store.Collections() {
		links = append(links, stac.Link{
			Rel:   stac.RelChild,
			Type:  stac.MediaTypeJSON,
			Title: col.Title,
			Href:  fmt.Sprintf("%s/collections/%s", self, col.ID),
		})
	}

	body, err := withLinks(store.Catalog().Body, links)
	if err != nil {
		log.Error().Err(err).Msg("could not rewrite catalog links")
		c.Status(fiber.ErrInternalServerError.Code)
		return c.JSON(stac.Message{
			Code:        stac.ServerError,
			Description: "could not serialize catalog",
		})
	}
	return common.RawJSON(c, body)
}

// Conformance lists the conformance classes
// GET /api/stac/v1/conformance
func Conformance(c *fiber.Ctx) error {
	return c.JSON(map[string][]string{"conformsTo": conformsTo})
}
