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

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ttomasz/unofficial-gugik-stac/common"
	"github.com/ttomasz/unofficial-gugik-stac/docstore"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// Collections returns a list of all collections
// GET /api/stac/v1/collections
func Collections(c *fiber.Ctx) error {
	store := docstore.GetInstance()
	baseURL := getBaseURL(c)
	self := stac.APIHref(baseURL, "/collections")

	cols := store.Collections()
	rendered := make([]json.RawMessage, 0, len(cols))
	for _, col := range cols {
		body, err := withLinks(col.Body, collectionLinks(baseURL, col.ID))
		if err != nil {
			log.Error().Err(err).Str("collectionId", col.ID).Msg("could not rewrite collection links")
			c.Status(fiber.ErrInternalServerError.Code)
			return c.JSON(stac.Message{
				Code:        stac.ServerError,
				Description: "could not serialize collection",
			})
		}
		rendered = append(rendered, body)
	}

	return c.JSON(map[string]interface{}{
		"collections": rendered,
		"links": []stac.Link{
			{Rel: stac.RelSelf, Type: stac.MediaTypeJSON, Href: self},
			{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: stac.APIHref(baseURL, "")},
		},
	})
}

// Collection returns details of a specific collection
// GET /api/stac/v1/collections/:collectionId
func Collection(c *fiber.Ctx) error {
	store := docstore.GetInstance()
	collectionID := c.Params("collectionId")

	col, ok := store.Collection(collectionID)
	if !ok {
		log.Warn().Str("collectionId", collectionID).Msg("collection not found")
		c.Status(fiber.ErrNotFound.Code)
		return c.JSON(stac.Message{
			Code:        stac.NotFoundError,
			Description: fmt.Sprintf("collection '%s' not found", collectionID),
		})
	}

	body, err := withLinks(col.Body, collectionLinks(getBaseURL(c), col.ID))
	if err != nil {
		log.Error().Err(err).Str("collectionId", col.ID).Msg("could not rewrite collection links")
		c.Status(fiber.ErrInternalServerError.Code)
		return c.JSON(stac.Message{
			Code:        stac.ServerError,
			Description: "could not serialize collection",
		})
	}
	return common.RawJSON(c, body)
}

func collectionLinks(baseURL, collectionID string) []stac.Link {
	self := stac.APIHref(baseURL, fmt.Sprintf("/collections/%s", collectionID))
	return []stac.Link{
		{Rel: stac.RelSelf, Type: stac.MediaTypeJSON, Href: self},
		{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: stac.APIHref(baseURL, "")},
		{Rel: stac.RelParent, Type: stac.MediaTypeJSON, Href: stac.APIHref(baseURL, "")},
		{Rel: "items", Type: stac.MediaTypeGeoJSON, Href: fmt.Sprintf("%s/items", self)},
	}
}
