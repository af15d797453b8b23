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

package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeNewKeysWin(t *testing.T) {
	got, err := Merge(
		[]byte(`{"title": "new", "gsd": 0.25}`),
		[]byte(`{"title": "old", "note": "kept"}`),
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "new", "gsd": 0.25, "note": "kept"}`, string(got))
}

func TestMergeRecursesIntoObjects(t *testing.T) {
	got, err := Merge(
		[]byte(`{"properties": {"datetime": "2023-01-01T00:00:00Z"}}`),
		[]byte(`{"properties": {"datetime": "2020-01-01T00:00:00Z", "annotation": "manual"}}`),
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"properties": {"datetime": "2023-01-01T00:00:00Z", "annotation": "manual"}}`, string(got))
}

func TestMergeArraysReplaceWholesale(t *testing.T) {
	got, err := Merge(
		[]byte(`{"bbox": [15, 50, 16, 51]}`),
		[]byte(`{"bbox": [0, 0, 1, 1]}`),
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bbox": [15, 50, 16, 51]}`, string(got))
}

func TestMergeIdenticalInputsAreStable(t *testing.T) {
	doc := []byte(`{"b": 1, "a": {"y": 2, "x": 3}}`)
	first, err := Merge(doc, doc)
	require.NoError(t, err)
	second, err := Merge(first, first)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestMergeRejectsNonObject(t *testing.T) {
	_, err := Merge([]byte(`[1, 2]`), []byte(`{}`))
	assert.Error(t, err)
}
