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

package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ttomasz/unofficial-gugik-stac/builder"
	"github.com/ttomasz/unofficial-gugik-stac/common"
	"github.com/ttomasz/unofficial-gugik-stac/ortho"
	"github.com/ttomasz/unofficial-gugik-stac/writer"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Build the STAC catalog from downloaded source indexes",
	Long: `convert scans the input directory for orthophotomap index files
(FlatGeobuf, GeoJSON, WMS capabilities), assembles items and collections
from them and reconciles the result against the previously generated
catalog. On validation failure nothing is written.`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg := builder.Config{
			InputDir:  viper.GetString("input.dir"),
			Workers:   viper.GetInt("convert.workers"),
			Timeout:   viper.GetDuration("convert.timeout"),
			Checksums: viper.GetBool("convert.checksums"),
			Catalog:   ortho.Catalog(),
		}
		if title := viper.GetString("catalog.title"); title != "" {
			cfg.Catalog.Title = title
		}
		if desc := viper.GetString("catalog.description"); desc != "" {
			cfg.Catalog.Description = desc
		}

		runner := builder.NewRunner(cfg, ortho.NewMapper())
		result, err := runner.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("catalog build failed")
		}
		log.Info().
			Int("collections", result.Report.CollectionsBuilt).
			Int("items", result.Report.ItemsBuilt).
			Int("warnings", len(result.Report.Warnings)).
			Msg("catalog built")

		target, err := newTarget()
		if err != nil {
			log.Fatal().Err(err).Msg("could not open output target")
		}

		w := writer.New(target, result.SourcePresent)
		if _, err := w.Write(ctx, result); err != nil {
			log.Fatal().Err(err).Msg("catalog write failed, previous catalog left untouched")
		}
	},
}

// newTarget picks the output backend: an object store when an endpoint is
// configured, the local catalog directory otherwise.
func newTarget() (writer.Target, error) {
	if endpoint := viper.GetString("store.endpoint"); endpoint != "" {
		return writer.NewObjectTarget(writer.ObjectTargetConfig{
			Endpoint:  endpoint,
			AccessKey: viper.GetString("store.access_key"),
			SecretKey: viper.GetString("store.secret_key"),
			Secure:    viper.GetBool("store.secure"),
			Bucket:    viper.GetString("store.bucket"),
			Prefix:    viper.GetString("store.prefix"),
		})
	}
	return writer.NewFSTarget(viper.GetString("catalog.dir"))
}

func init() {
	rootCmd.AddCommand(convertCmd)

	if err := viper.BindEnv("input.dir", "INPUT_DIR"); err != nil {
		log.Panic().Err(err).Msg("could not bind INPUT_DIR")
	}
	convertCmd.Flags().StringP("input-dir", "i", "data", "Directory with downloaded source index files")
	if err := viper.BindPFlag("input.dir", convertCmd.Flags().Lookup("input-dir")); err != nil {
		log.Panic().Err(err).Msg("could not bind input-dir")
	}

	if err := viper.BindEnv("convert.workers", "WORKERS"); err != nil {
		log.Panic().Err(err).Msg("could not bind WORKERS")
	}
	convertCmd.Flags().IntP("workers", "w", 3, "Number of sources processed concurrently")
	if err := viper.BindPFlag("convert.workers", convertCmd.Flags().Lookup("workers")); err != nil {
		log.Panic().Err(err).Msg("could not bind workers")
	}

	if err := viper.BindEnv("convert.timeout", "SOURCE_TIMEOUT"); err != nil {
		log.Panic().Err(err).Msg("could not bind SOURCE_TIMEOUT")
	}
	convertCmd.Flags().Duration("source-timeout", 0, "Per-source processing timeout, 0 uses the default")
	if err := viper.BindPFlag("convert.timeout", convertCmd.Flags().Lookup("source-timeout")); err != nil {
		log.Panic().Err(err).Msg("could not bind source-timeout")
	}

	if err := viper.BindEnv("convert.checksums", "CHECKSUMS"); err != nil {
		log.Panic().Err(err).Msg("could not bind CHECKSUMS")
	}
	convertCmd.Flags().Bool("checksums", false, "Compute sha256 multihash checksums for local assets")
	if err := viper.BindPFlag("convert.checksums", convertCmd.Flags().Lookup("checksums")); err != nil {
		log.Panic().Err(err).Msg("could not bind checksums")
	}

	if err := viper.BindEnv("catalog.title", "CATALOG_TITLE"); err != nil {
		log.Panic().Err(err).Msg("could not bind CATALOG_TITLE")
	}
	convertCmd.Flags().String("catalog-title", "", "Override the catalog title")
	if err := viper.BindPFlag("catalog.title", convertCmd.Flags().Lookup("catalog-title")); err != nil {
		log.Panic().Err(err).Msg("could not bind catalog-title")
	}

	if err := viper.BindEnv("catalog.description", "CATALOG_DESCRIPTION"); err != nil {
		log.Panic().Err(err).Msg("could not bind CATALOG_DESCRIPTION")
	}
	convertCmd.Flags().String("catalog-description", "", "Override the catalog description")
	if err := viper.BindPFlag("catalog.description", convertCmd.Flags().Lookup("catalog-description")); err != nil {
		log.Panic().Err(err).Msg("could not bind catalog-description")
	}

	// object store target
	if err := viper.BindEnv("store.endpoint", "STORE_ENDPOINT"); err != nil {
		log.Panic().Err(err).Msg("could not bind STORE_ENDPOINT")
	}
	convertCmd.Flags().String("store-endpoint", "", "Object store endpoint; when set the catalog is written there instead of the local directory")
	if err := viper.BindPFlag("store.endpoint", convertCmd.Flags().Lookup("store-endpoint")); err != nil {
		log.Panic().Err(err).Msg("could not bind store-endpoint")
	}

	if err := viper.BindEnv("store.access_key", "STORE_ACCESS_KEY"); err != nil {
		log.Panic().Err(err).Msg("could not bind STORE_ACCESS_KEY")
	}
	if err := viper.BindEnv("store.secret_key", "STORE_SECRET_KEY"); err != nil {
		log.Panic().Err(err).Msg("could not bind STORE_SECRET_KEY")
	}
	if err := viper.BindEnv("store.secure", "STORE_SECURE"); err != nil {
		log.Panic().Err(err).Msg("could not bind STORE_SECURE")
	}

	if err := viper.BindEnv("store.bucket", "STORE_BUCKET"); err != nil {
		log.Panic().Err(err).Msg("could not bind STORE_BUCKET")
	}
	convertCmd.Flags().String("store-bucket", "", "Object store bucket for the catalog documents")
	if err := viper.BindPFlag("store.bucket", convertCmd.Flags().Lookup("store-bucket")); err != nil {
		log.Panic().Err(err).Msg("could not bind store-bucket")
	}

	if err := viper.BindEnv("store.prefix", "STORE_PREFIX"); err != nil {
		log.Panic().Err(err).Msg("could not bind STORE_PREFIX")
	}
	convertCmd.Flags().String("store-prefix", "", "Key prefix inside the bucket")
	if err := viper.BindPFlag("store.prefix", convertCmd.Flags().Lookup("store-prefix")); err != nil {
		log.Panic().Err(err).Msg("could not bind store-prefix")
	}
}
