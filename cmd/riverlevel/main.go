// Command riverlevel builds the river level panel and drives the e-paper
// display.
//
//	riverlevel generate --config river.yaml --out-dir out
//	riverlevel publish --config river.yaml
//	riverlevel show --file out/latest.bin
//
// Display wiring, as configured by default:
//
//	Display    Raspberry Pi
//	GND        GND
//	VCC        3.3V
//	CLK        GPIO11 (SPI0 CLK)
//	DIN        GPIO10 (SPI0 MOSI)
//	CS         GPIO8 (SPI0 CE0)
//	DC         GPIO25
//	RST        GPIO17
//	BUSY       GPIO24
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riverlevel/riverlevel/config"
)

var configFiles []string

var rootCmd = &cobra.Command{
	Use:           "riverlevel",
	Short:         "River level e-paper panel",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil,
		"YAML configuration files, later files override earlier ones")
	rootCmd.AddCommand(generateCmd, publishCmd, showCmd)
}

// loadConfig returns the configuration from --config, or the defaults.
func loadConfig() (config.Configuration, error) {
	if len(configFiles) == 0 {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadFiles(configFiles...)
}

// setup loads the configuration and builds the logger.
func setup() (config.Configuration, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "riverlevel: %v\n", err)
		stop()
		os.Exit(1)
	}
}
