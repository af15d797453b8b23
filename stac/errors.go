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

import "errors"

// Error taxonomy of the catalog build. The first four are recoverable at
// their origin: the offending source or group is skipped and reported as a
// warning on the run report. ErrBrokenLinkGraph is fatal and aborts the
// write before anything is persisted.
var (
	ErrUnreadableSource = errors.New("source cannot be opened or parsed")
	ErrUnsupportedCRS   = errors.New("source CRS cannot be normalized to a known identifier")
	ErrEmptyGroup       = errors.New("group resolved to zero assets")
	ErrDuplicateItemID  = errors.New("duplicate item id within collection")
	ErrBrokenLinkGraph  = errors.New("catalog link graph is broken")
)

// Message is the error payload returned by the serve endpoints.
type Message struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

const (
	ParameterError = "ParameterError"
	NotFoundError  = "NotFound"
	ServerError    = "ServerError"
)
