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
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ttomasz/unofficial-gugik-stac/common"
	"github.com/ttomasz/unofficial-gugik-stac/docstore"
	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// Items returns the items of a collection as a FeatureCollection
// GET /api/stac/v1/collections/:collectionId/items
func Items(c *fiber.Ctx) error {
	store := docstore.GetInstance()
	baseURL := getBaseURL(c)
	collectionID := c.Params("collectionId")

	if _, ok := store.Collection(collectionID); !ok {
		log.Warn().Str("collectionId", collectionID).Msg("collection not found")
		c.Status(fiber.ErrNotFound.Code)
		return c.JSON(stac.Message{
			Code:        stac.NotFoundError,
			Description: fmt.Sprintf("collection '%s' not found", collectionID),
		})
	}

	limit, err := parseLimit(c, c.Query("limit", "250"))
	if errors.Is(err, errInvalidLimit) {
		return nil
	}
	if err != nil {
		return err
	}

	items := store.Items(collectionID)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	features := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		body, rerr := withLinks(item.Body, itemLinks(baseURL, collectionID, item.ID))
		if rerr != nil {
			log.Error().Err(rerr).Str("itemId", item.ID).Msg("could not rewrite item links")
			c.Status(fiber.ErrInternalServerError.Code)
			return c.JSON(stac.Message{
				Code:        stac.ServerError,
				Description: "could not serialize item",
			})
		}
		features = append(features, body)
	}

	self := stac.APIHref(baseURL, fmt.Sprintf("/collections/%s/items", collectionID))
	return common.GeoJSON(c, map[string]interface{}{
		"type":     "FeatureCollection",
		"features": features,
		"links": []stac.Link{
			{Rel: stac.RelSelf, Type: stac.MediaTypeGeoJSON, Href: self},
			{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: stac.APIHref(baseURL, "")},
			{Rel: "collection", Type: stac.MediaTypeJSON, Href: stac.APIHref(baseURL, fmt.Sprintf("/collections/%s", collectionID))},
		},
	})
}

// Item returns details of a specific item
// GET /api/stac/v1/collections/:collectionId/items/:itemId
func Item(c *fiber.Ctx) error {
	store := docstore.GetInstance()
	baseURL := getBaseURL(c)
	collectionID := c.Params("collectionId")
	itemID := c.Params("itemId")

	item, ok := store.Item(collectionID, itemID)
	if !ok {
		log.Warn().Str("collectionId", collectionID).Str("itemId", itemID).Msg("item not found")
		c.Status(fiber.ErrNotFound.Code)
		return c.JSON(stac.Message{
			Code:        stac.NotFoundError,
			Description: fmt.Sprintf("item '%s' not found in collection '%s'", itemID, collectionID),
		})
	}

	body, err := withLinks(item.Body, itemLinks(baseURL, collectionID, itemID))
	if err != nil {
		log.Error().Err(err).Str("itemId", itemID).Msg("could not rewrite item links")
		c.Status(fiber.ErrInternalServerError.Code)
		return c.JSON(stac.Message{
			Code:        stac.ServerError,
			Description: "could not serialize item",
		})
	}
	c.Set("Content-Type", stac.MediaTypeGeoJSON)
	return c.Send(body)
}

func itemLinks(baseURL, collectionID, itemID string) []stac.Link {
	collection := stac.APIHref(baseURL, fmt.Sprintf("/collections/%s", collectionID))
	return []stac.Link{
		{Rel: stac.RelSelf, Type: stac.MediaTypeGeoJSON, Href: fmt.Sprintf("%s/items/%s", collection, itemID)},
		{Rel: stac.RelRoot, Type: stac.MediaTypeJSON, Href: stac.APIHref(baseURL, "")},
		{Rel: stac.RelParent, Type: stac.MediaTypeJSON, Href: collection},
		{Rel: "collection", Type: stac.MediaTypeJSON, Href: collection},
	}
}
