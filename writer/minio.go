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

package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/ttomasz/unofficial-gugik-stac/stac"
)

// ObjectTarget persists the catalog under a bucket prefix of an
// S3-compatible object store. Object stores have no atomic directory
// swap; the all-or-nothing property comes from validating the full set
// before the first object is uploaded.
type ObjectTarget struct {
	client *minio.Client
	bucket string
	prefix string
}

// ObjectTargetConfig connects to an S3-compatible endpoint.
type ObjectTargetConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	Prefix    string
}

func NewObjectTarget(cfg ObjectTargetConfig) (*ObjectTarget, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &ObjectTarget{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (t *ObjectTarget) List(ctx context.Context) ([]string, error) {
	var rels []string
	for obj := range t.client.ListObjects(ctx, t.bucket, minio.ListObjectsOptions{
		Prefix:    t.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		rels = append(rels, strings.TrimPrefix(obj.Key, t.prefix))
	}
	return rels, nil
}

func (t *ObjectTarget) Read(ctx context.Context, rel string) ([]byte, error) {
	obj, err := t.client.GetObject(ctx, t.bucket, t.prefix+rel, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (t *ObjectTarget) Commit(ctx context.Context, docs map[string][]byte) error {
	existing, err := t.List(ctx)
	if err != nil {
		return err
	}

	for rel, body := range docs {
		contentType := stac.MediaTypeJSON
		if strings.HasSuffix(rel, ".json") && !strings.HasSuffix(rel, "collection.json") && rel != "catalog.json" {
			contentType = stac.MediaTypeGeoJSON
		}
		_, err := t.client.PutObject(ctx, t.bucket, t.prefix+rel,
			bytes.NewReader(body), int64(len(body)),
			minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}
	}

	// remove documents that are no longer part of the set
	for _, rel := range existing {
		if _, keep := docs[rel]; keep {
			continue
		}
		if err := t.client.RemoveObject(ctx, t.bucket, t.prefix+rel, minio.RemoveObjectOptions{}); err != nil {
			log.Warn().Err(err).Str("key", t.prefix+rel).Msg("could not remove stale document")
		}
	}
	return nil
}
