// Command jackc compiles Jack source files to Hack-VM code.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jacktrans/jackc/internal/driver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: false})

	cmd := &cobra.Command{
		Use:   "jackc <path>",
		Short: "Translate Jack source into Hack-VM code",
		Long: "jackc translates a single .jack file, or every .jack file in a\n" +
			"directory (non-recursively), into the corresponding .vm file.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return run(cmd.Context(), args[0], log)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging, including each successful translation")
	return cmd
}

func run(ctx context.Context, path string, log *logrus.Logger) error {
	files, err := driver.CollectFiles(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.WithField("path", path).Warn("no .jack files found")
		return nil
	}

	results := driver.RunAll(ctx, files, log)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.SourcePath, r.Err)
			continue
		}
		fmt.Printf("%s -> %s\n", r.SourcePath, r.OutputPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to translate", failed, len(files))
	}
	return nil
}
