package cli

import (
	"context"
	"fmt"
	"gpuresize/internal/adapters/accelerator"
	"gpuresize/internal/adapters/codec"
	"gpuresize/internal/adapters/file"
	"gpuresize/internal/adapters/notifier"
	"gpuresize/internal/adapters/reporter"
	"gpuresize/internal/core/domain"
	"gpuresize/internal/core/port"
	"gpuresize/internal/core/service"
	"io"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const Version = "0.1.0"

// NewRootCommand builds the gpuresize command. Progress goes to out, logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "gpuresize",
		Short: "Resize grayscale images on an accelerator",
		Long: `gpuresize scales 8-bit grayscale images by a constant factor with a Lanczos-class
resampling kernel running on an accelerator device.

A single image is given with --input (defaulting to the bundled lena1.pgm), a batch with
--list pointing at a file holding one path per line. Every result is written next to its
source as <name>_resized.pgm.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := readConfig(v, cfgFile); err != nil {
				return err
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			if err := setupLogging(errOut, cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}
			if used := v.ConfigFileUsed(); used != "" {
				log.Debug().Str("path", used).Msg("using config file")
			}

			return Run(cmd.Context(), cfg, out)
		},
	}

	setDefaults(v)

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./gpuresize.toml)")
	flags.Float64("scale", domain.DefaultScale, "scale factor applied to both axes")
	flags.String("input", "", "single image to resize (default is the bundled "+domain.DefaultAsset+")")
	flags.String("list", "", "file listing one image path per line")
	flags.String("interpolation", domain.InterpolationLanczos.String(), "nearest, linear, cubic or lanczos")
	flags.String("backend", accelerator.BackendNFNT, "accelerator backend: nfnt, xdraw or npp")
	flags.String("log-level", "info", "debug, info, warn or error")

	_ = v.BindPFlag("scale", flags.Lookup("scale"))
	_ = v.BindPFlag("input", flags.Lookup("input"))
	_ = v.BindPFlag("list", flags.Lookup("list"))
	_ = v.BindPFlag("interpolation", flags.Lookup("interpolation"))
	_ = v.BindPFlag("device.backend", flags.Lookup("backend"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	cmd.SetOut(out)
	cmd.SetErr(errOut)

	return cmd
}

// Run initializes the device once and processes either the list or the single input of cfg.
// Per-item failures are reported, not returned.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	log.Logger = log.With().Str("run", id.String()).Logger()

	dev, err := accelerator.New(accelerator.Options{
		Backend:        cfg.Backend,
		PitchAlignment: cfg.PitchAlignment,
		MemoryLimit:    cfg.MemoryLimit,
	})
	if err != nil {
		return fmt.Errorf("failed initializing device: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn().Err(err).Msg("could not close device")
		}
	}()

	printBanner(out, dev.Info())

	pipeline := service.NewImagePipeline(dev, codec.New(), file.Prober{}, cfg.Interpolation)
	driver := service.NewBatchDriver(pipeline, reporter.NewConsole(out), newNotifier(cfg))

	if cfg.List != "" {
		if cfg.Input != "" {
			log.Warn().Str("input", cfg.Input).Msg("--list given, ignoring --input")
		}
		_, err := driver.RunList(ctx, cfg.List, cfg.Scale)
		return err
	}

	path := cfg.Input
	if path == "" {
		var found bool
		path, found = file.FindAsset(cfg.DefaultAsset, cfg.SearchPaths)
		if !found {
			log.Warn().Str("asset", cfg.DefaultAsset).Strs("searched", cfg.SearchPaths).Msg("default asset not found")
		}
	}

	driver.RunSingle(ctx, path, cfg.Scale)
	return ctx.Err()
}

func newNotifier(cfg Config) port.Notifier {
	if cfg.TelegramToken == "" {
		return nil
	}

	n, err := notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("batch notifications disabled")
		return nil
	}
	return n
}

func printBanner(w io.Writer, info domain.DeviceInfo) {
	fmt.Fprintf(w, "gpuresize %s starting...\n\n", Version)
	fmt.Fprintf(w, "Device: %s\n", info.Name)
	fmt.Fprintf(w, "Backend: %s\n", info.Backend)
	fmt.Fprintf(w, "Driver: %s\n", info.Driver)
	if info.MemoryTotal > 0 {
		fmt.Fprintf(w, "Memory: %d MiB\n", info.MemoryTotal>>20)
	}
	fmt.Fprintf(w, "Pitch alignment: %d bytes\n\n", info.PitchAlignment)
}
