package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/riverlevel/riverlevel/epd4in2b"
	"github.com/riverlevel/riverlevel/framebuf"
)

var (
	showFile string
	showHold time.Duration
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "push a framebuffer file to the e-paper panel",
	Long: `Show writes a 15000 byte (black) or 30000 byte (black and red) framebuffer
to the panel, keeps it powered for the hold time and puts it to sleep.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		buf, err := os.ReadFile(showFile)
		if err != nil {
			return err
		}
		planes, err := framebuf.Validate(buf)
		if err != nil {
			return fmt.Errorf("%s: %w", showFile, err)
		}

		if _, err := host.Init(); err != nil {
			return fmt.Errorf("failed to initialize periph.io: %w", err)
		}
		b, err := spireg.Open(cfg.Display.SPI)
		if err != nil {
			return fmt.Errorf("failed to open SPI bus: %w", err)
		}
		defer b.Close()

		dc, err := pin(cfg.Display.DC)
		if err != nil {
			return err
		}
		busy, err := pin(cfg.Display.Busy)
		if err != nil {
			return err
		}
		opts := &epd4in2b.Opts{Busy: busy}
		if cfg.Display.RST != "" {
			rst, err := pin(cfg.Display.RST)
			if err != nil {
				return err
			}
			opts.RST = rst
		}

		dev, err := epd4in2b.NewSPI(b, dc, opts)
		if err != nil {
			return err
		}
		defer dev.Halt()

		logger.Info("writing framebuffer", zap.Stringer("dev", dev), zap.String("file", showFile), zap.Int("planes", planes))
		if _, err := dev.Write(buf); err != nil {
			return err
		}

		hold := cfg.Display.Hold
		if cmd.Flags().Changed("hold") {
			hold = showHold
		}
		select {
		case <-time.After(hold):
		case <-cmd.Context().Done():
		}
		logger.Info("putting panel to sleep")
		return dev.Halt()
	},
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("GPIO pin %s not found", name)
	}
	return p, nil
}

func init() {
	showCmd.Flags().StringVarP(&showFile, "file", "f", "latest.bin", "framebuffer file")
	showCmd.Flags().DurationVar(&showHold, "hold", 0, "time to keep the panel powered (overrides display.hold)")
}
