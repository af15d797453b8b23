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
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

func getBaseURL(c *fiber.Ctx) string {
	return fmt.Sprintf("%s://%s", c.Protocol(), c.Hostname())
}

// errInvalidLimit signals that the 422 response has already been written.
// Handlers return nil on it so the body is not overwritten.
var errInvalidLimit = errors.New("invalid limit parameter")

func parseLimit(c *fiber.Ctx, limitStr string) (int, error) {
	var err error
	var limit int
	if limit, err = strconv.Atoi(limitStr); err != nil {
		log.Error().Err(err).Str("limit", limitStr).Msg("could not convert limit to int")
		c.Status(fiber.ErrUnprocessableEntity.Code)
		if err := c.JSON(stac.Message{
			Code:        stac.ParameterError,
			Description: fmt.Sprintf("limit '%s' could not be converted to int", limitStr),
		}); err != nil {
			return 0, err
		}
		return 0, errInvalidLimit
	}
	if limit < 0 || limit > 1000 {
		log.Error().Int("limit", limit).Msg("limit out of bounds: 0 <= limit <= 1000")
		c.Status(fiber.ErrUnprocessableEntity.Code)
		if err := c.JSON(stac.Message{
			Code:        stac.ParameterError,
			Description: fmt.Sprintf("limit '%s' must be between 0 and 1000", limitStr),
		}); err != nil {
			return 0, err
		}
		return 0, errInvalidLimit
	}

	return limit, nil
}

// withLinks re-serializes a persisted document with its relative on-disk
// links replaced by absolute API links. All other fields pass through
// untouched.
func withLinks(body []byte, links []stac.Link) (json.RawMessage, error) {
	doc := make(map[string]*json.RawMessage)
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return nil, err
	}
	rawLinks := json.RawMessage(raw)
	doc["links"] = &rawLinks
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return out, nil
}
