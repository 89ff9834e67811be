/*
Copyright © 2026 The genlisp Authors

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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/msgkit/genlisp/internal/emit"
	"github.com/msgkit/genlisp/internal/msgspec"
)

var (
	verbose bool
	logger  *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "genlisp FILE [FILE...]",
	Short: "Generate Lisp message bindings and package manifests",
	Long: `Generate Lisp binding source for message schema files and keep each
package's shared manifest up to date.

For every schema file argument, genlisp emits the message's binding and
registration fragment under <base>/lisp/<package>/, then rewrites the
package's _package.lisp from a fresh scan of the source directory so the
manifest always lists every sibling message. The build system invokes
genlisp once per schema file; manifest rewrites are serialized through a
per-package lock and applied atomically.`,
	Args: cobra.MinimumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		emitter := emit.New(parseSchema, logger)
		for _, arg := range args {
			if err := emitter.ProcessFile(arg); err != nil {
				return err
			}
		}
		return nil
	},
}

func parseSchema(path, pkg, name string) (emit.Model, error) {
	return msgspec.Parse(path, pkg, name)
}

// Execute runs the root command and returns its error, leaving exit status
// mapping to main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
