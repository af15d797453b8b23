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

package common

import (
	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// GeoJSON marshals data and sends it with the geo+json content type.
// Used for item responses which are GeoJSON features rather than plain JSON.
func GeoJSON(c *fiber.Ctx, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.Set("Content-Type", "application/geo+json")
	return c.Send(raw)
}

// RawJSON sends an already serialized document, preserving its bytes so the
// served representation matches what the writer persisted.
func RawJSON(c *fiber.Ctx, raw []byte) error {
	c.Set("Content-Type", "application/json")
	return c.Send(raw)
}
