// Package config loads and hot-reloads cmd/transrecsrv's configuration:
// koanf defaults from a structs.Provider, overlaid by a YAML file if
// present.
package config

import (
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/mitchellh/mapstructure"

	"github.jpl.nasa.gov/bdube/transrec/simdigitizer"
)

// Recorder configures where archived bursts are written and under what
// filename prefix.
type Recorder struct {
	Root   string `yaml:"Root"`
	Prefix string `yaml:"Prefix"`
}

// Config is the top-level server configuration.
type Config struct {
	Addr            string  `yaml:"Addr"`
	Root            string  `yaml:"Root"`
	DigitizerName   string  `yaml:"DigitizerName"`
	NumChannels     int     `yaml:"NumChannels"`
	SleepAfterBurst float64 `yaml:"SleepAfterBurst"`

	Recorder Recorder `yaml:"Recorder"`

	// Simulation is decoded separately into simdigitizer.Options by
	// DecodeSimOptions: a free-form map decoded with mapstructure.
	Simulation map[string]interface{} `yaml:"Simulation"`
}

// Default returns the configuration used to seed koanf before any file is
// loaded, so mkconf has sane values to emit.
func Default() Config {
	return Config{
		Addr:            ":8080",
		Root:            "/",
		DigitizerName:   "simulated-digitizer",
		NumChannels:     4,
		SleepAfterBurst: 0,
		Recorder:        Recorder{Root: "/tmp/transrec", Prefix: "burst"},
		Simulation: map[string]interface{}{
			"NoiseAmplitude":         0.01,
			"OverflowAfterBursts":    0,
			"OverflowBufferedBursts": 0,
			"WarmupDelay":            "0s",
		},
	}
}

// Koanf is the package-level instance; config.Load populates it, and
// mkconf/conf in cmd/transrecsrv re-marshal it back out.
var Koanf = koanf.New(".")

// Load seeds Koanf with Default and overlays fname if it exists; a missing
// file is not an error, so a server can start on defaults alone.
func Load(fname string) error {
	Koanf = koanf.New(".")
	if err := Koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return err
	}
	if err := Koanf.Load(file.Provider(fname), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") {
			return err
		}
	}
	return nil
}

// Unmarshal decodes the current Koanf state into a Config.
func Unmarshal() (Config, error) {
	var c Config
	err := Koanf.Unmarshal("", &c)
	return c, err
}

// DecodeSimOptions decodes cfg.Simulation into simdigitizer.Options with
// mapstructure directly: a free-form map handed to a device-specific
// Configure, the same shape a bootup-args block would take.
func DecodeSimOptions(cfg Config) (simdigitizer.Options, error) {
	opts := simdigitizer.Options{NumChannels: cfg.NumChannels}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(cfg.Simulation); err != nil {
		return opts, err
	}
	opts.NumChannels = cfg.NumChannels
	return opts, nil
}
