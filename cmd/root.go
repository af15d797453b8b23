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
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gugik-stac",
	Short: "Generate and serve a STAC catalog of GUGiK open data",
	Long: `gugik-stac builds a static STAC 1.1.0 catalog from downloaded GUGiK
orthophotomap indexes and serves the generated document set for browsing`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/gugik-stac.toml)")

	// catalog output directory, shared by convert and serve
	if err := viper.BindEnv("catalog.dir", "CATALOG_DIR"); err != nil {
		log.Panic().Err(err).Msg("could not bind CATALOG_DIR")
	}
	rootCmd.PersistentFlags().String("catalog-dir", "catalog", "Directory holding the generated catalog documents")
	if err := viper.BindPFlag("catalog.dir", rootCmd.PersistentFlags().Lookup("catalog-dir")); err != nil {
		log.Panic().Err(err).Msg("could not bind catalog-dir")
	}

	// Logging configuration
	if err := viper.BindEnv("log.level", "LOG_LEVEL"); err != nil {
		log.Panic().Err(err).Msg("could not bind LOG_LEVEL")
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level")
	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Panic().Err(err).Msg("could not bind log-level")
	}

	if err := viper.BindEnv("log.report_caller", "LOG_REPORT_CALLER"); err != nil {
		log.Panic().Err(err).Msg("could not bind LOG_REPORT_CALLER")
	}
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	if err := viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller")); err != nil {
		log.Panic().Err(err).Msg("could not bind log-report-caller")
	}

	if err := viper.BindEnv("log.output", "LOG_OUTPUT"); err != nil {
		log.Panic().Err(err).Msg("could not bind LOG_OUTPUT")
	}
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	if err := viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output")); err != nil {
		log.Panic().Err(err).Msg("could not bind log-output")
	}

	if err := viper.BindEnv("log.pretty", "LOG_PRETTY"); err != nil {
		log.Panic().Err(err).Msg("could not bind LOG_PRETTY")
	}
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Human readable console logs instead of JSON")
	if err := viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty")); err != nil {
		log.Panic().Err(err).Msg("could not bind log-pretty")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name "gugik-stac.toml"
		viper.AddConfigPath("/etc/")
		viper.AddConfigPath(fmt.Sprintf("%s/.config", home))
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("toml")
		viper.SetConfigName("gugik-stac.toml")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in. Running without one is fine,
	// everything has flag or env defaults.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFile", viper.ConfigFileUsed()).Msg("Loaded config file")
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Error().Stack().Err(err).Msg("error reading config file")
			os.Exit(1)
		}
	}
}
