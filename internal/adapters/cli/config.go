package cli

import (
	"errors"
	"fmt"
	"gpuresize/internal/adapters/accelerator"
	"gpuresize/internal/adapters/file"
	"gpuresize/internal/core/domain"
	"math"
	"strings"

	"github.com/spf13/viper"
)

const (
	ConfigName = "gpuresize"
	EnvPrefix  = "GPURESIZE"
)

// Config is the resolved run configuration: defaults, then config file, then environment, then flags.
type Config struct {
	Scale         float64
	Input         string
	List          string
	Interpolation domain.Interpolation

	Backend        string
	PitchAlignment int
	MemoryLimit    int64

	DefaultAsset string
	SearchPaths  []string

	LogLevel  string
	LogFormat string

	TelegramToken  string
	TelegramChatID int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scale", domain.DefaultScale)
	v.SetDefault("interpolation", domain.InterpolationLanczos.String())
	v.SetDefault("device.backend", accelerator.BackendNFNT)
	v.SetDefault("device.pitch_alignment", accelerator.DefaultPitchAlignment)
	v.SetDefault("device.memory_limit", accelerator.DefaultMemoryLimit)
	v.SetDefault("assets.default", domain.DefaultAsset)
	v.SetDefault("assets.search_paths", file.DefaultSearchPaths())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// readConfig loads the config file named by path, or gpuresize.toml from the working directory
// when path is empty. A missing default file is not an error.
func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(ConfigName)
		v.SetConfigType("toml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("could not read config file: %w", err)
	}

	return nil
}

func loadConfig(v *viper.Viper) (Config, error) {
	interp, err := domain.ParseInterpolation(v.GetString("interpolation"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Scale:          v.GetFloat64("scale"),
		Input:          v.GetString("input"),
		List:           v.GetString("list"),
		Interpolation:  interp,
		Backend:        strings.ToLower(v.GetString("device.backend")),
		PitchAlignment: v.GetInt("device.pitch_alignment"),
		MemoryLimit:    v.GetInt64("device.memory_limit"),
		DefaultAsset:   v.GetString("assets.default"),
		SearchPaths:    v.GetStringSlice("assets.search_paths"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
		TelegramToken:  v.GetString("telegram.bot_token"),
		TelegramChatID: v.GetInt64("telegram.chat_id"),
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if math.IsNaN(c.Scale) || math.IsInf(c.Scale, 0) || c.Scale <= 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidScale, c.Scale)
	}

	switch c.Backend {
	case accelerator.BackendNFNT, accelerator.BackendXDraw, accelerator.BackendNPP:
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownBackend, c.Backend)
	}

	if c.PitchAlignment < 0 || c.PitchAlignment&(c.PitchAlignment-1) != 0 {
		return fmt.Errorf("device pitch alignment must be a power of two, got %d", c.PitchAlignment)
	}
	if c.MemoryLimit < 0 {
		return fmt.Errorf("device memory limit must not be negative, got %d", c.MemoryLimit)
	}

	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return errors.New("telegram.chat_id is required when telegram.bot_token is set")
	}

	return nil
}
