package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/riverlevel/riverlevel/pipeline"
	"github.com/riverlevel/riverlevel/publish"
)

var outDir string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "write latest.json, latest.png and latest.bin to a directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		dir := cfg.Output.Dir
		if cmd.Flags().Changed("out-dir") {
			dir = outDir
		}
		if _, err := pipeline.Run(cmd.Context(), cfg, &publish.FileSink{Dir: dir}, pipeline.Options{Logger: logger}); err != nil {
			return err
		}
		for _, name := range []string{publish.DocumentName, publish.ImageName, publish.FramebufferName} {
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, name))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "output directory (overrides output.dir)")
}
