/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "matderiv",
	Short: "Checks analytic material property derivatives against finite differences",
	Long: `
Assembles a 1D finite element problem from an input deck, with kernels bound to
material properties and their derivatives, and compares the analytic Jacobian
with a finite difference Jacobian of the residual, block by block.

matderiv check -I deck.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.matderiv.yaml)")
	rootCmd.PersistentFlags().IntP("workers", "w", runtime.NumCPU(), "number of parallel assembly workers")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.SetDefault("tolerance", 1.e-6)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".matderiv")
	}

	viper.SetEnvPrefix("MATDERIV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the command line logger at the configured level, logging
// to stderr so reports on stdout stay clean
func newLogger(level string) (logger *zap.Logger, err error) {
	config := zap.NewProductionConfig()
	if strings.EqualFold(level, "debug") {
		config = zap.NewDevelopmentConfig()
	}
	if config.Level, err = zap.ParseAtomicLevel(level); err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}
