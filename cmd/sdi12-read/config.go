package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arloliu/go-sdi12/sdi12"
	"gopkg.in/yaml.v3"
)

// Config holds the command configuration. Values come from the YAML file
// named by -config, then from flags given on the command line.
type Config struct {
	Device    string   `yaml:"device"`
	Addresses []string `yaml:"addresses"`

	// DirPin is a single direction pin, driven to DirTransmitHigh to transmit.
	DirPin          string `yaml:"dir_pin"`
	DirTransmitHigh bool   `yaml:"dir_transmit_high"`

	// DrivePin and ReceivePin are independent driver and receiver enables.
	DrivePin          string `yaml:"drive_pin"`
	ReceivePin        string `yaml:"receive_pin"`
	DriveActiveHigh   bool   `yaml:"drive_active_high"`
	ReceiveActiveHigh bool   `yaml:"receive_active_high"`

	CharPeriod      time.Duration `yaml:"char_period"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	PostWriteWait   bool          `yaml:"post_write_wait"`

	Measure    string `yaml:"measure"`
	DigitCount int    `yaml:"digit_count"`
	ForceWait  bool   `yaml:"force_wait"`

	LogLevel string `yaml:"log_level"`
	Simulate bool   `yaml:"simulate"`
}

func defaultConfig() *Config {
	return &Config{
		Device:            "/dev/ttyUSB0",
		Addresses:         []string{sdi12.DefaultAddress.String()},
		DirTransmitHigh:   true,
		DriveActiveHigh:   sdi12.DefaultDualPinLevels.DriveActive,
		ReceiveActiveHigh: sdi12.DefaultDualPinLevels.ReceiveActive,
		CharPeriod:        sdi12.DefaultCharPeriod,
		ResponseTimeout:   sdi12.DefaultResponseTimeout,
		SettleDelay:       sdi12.DefaultSettleDelay,
		PostWriteWait:     sdi12.DefaultPostWriteWait,
		Measure:           sdi12.DefaultMeasureKind,
		DigitCount:        sdi12.DefaultMeasureDigitCount,
		LogLevel:          "info",
	}
}

// loadConfig parses args, reading the -config file first when one is given.
func loadConfig(args []string) (*Config, error) {
	var (
		configFile string
		flagCfg    Config
		addresses  string
	)

	fs := flag.NewFlagSet("sdi12-read", flag.ContinueOnError)
	fs.StringVar(&configFile, "config", "", "YAML configuration file path")
	fs.StringVar(&flagCfg.Device, "device", "", "Serial device of the bus (default /dev/ttyUSB0)")
	fs.StringVar(&addresses, "addresses", "", "Comma separated sensor addresses, or \"all\" (default 0)")
	fs.StringVar(&flagCfg.DirPin, "dir-pin", "", "Single direction control GPIO")
	fs.BoolVar(&flagCfg.DirTransmitHigh, "dir-transmit-high", true, "Drive the direction GPIO high to transmit")
	fs.StringVar(&flagCfg.DrivePin, "drive-pin", "", "Driver enable GPIO")
	fs.StringVar(&flagCfg.ReceivePin, "receive-pin", "", "Receiver enable GPIO")
	fs.BoolVar(&flagCfg.DriveActiveHigh, "drive-active-high", true, "Driver enable is active high")
	fs.BoolVar(&flagCfg.ReceiveActiveHigh, "receive-active-high", false, "Receiver enable is active high")
	fs.DurationVar(&flagCfg.CharPeriod, "char-period", sdi12.DefaultCharPeriod, "Character period")
	fs.DurationVar(&flagCfg.ResponseTimeout, "timeout", sdi12.DefaultResponseTimeout, "Reply timeout")
	fs.DurationVar(&flagCfg.SettleDelay, "settle-delay", 0, "Quiet period after each reply")
	fs.BoolVar(&flagCfg.PostWriteWait, "post-write-wait", true, "Wait for a command to drain before listening")
	fs.StringVar(&flagCfg.Measure, "measure", sdi12.DefaultMeasureKind, "Measurement command: M, M1..M9, C, ...")
	fs.IntVar(&flagCfg.DigitCount, "digit-count", sdi12.DefaultMeasureDigitCount, "Value count digits of the measurement reply")
	fs.BoolVar(&flagCfg.ForceWait, "force-wait", false, "Ignore service requests and wait the announced time")
	fs.StringVar(&flagCfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&flagCfg.Simulate, "simulate", false, "Use a simulated bus instead of hardware")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configFile, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = flagCfg.Device
		case "addresses":
			cfg.Addresses = splitList(addresses)
		case "dir-pin":
			cfg.DirPin = flagCfg.DirPin
		case "dir-transmit-high":
			cfg.DirTransmitHigh = flagCfg.DirTransmitHigh
		case "drive-pin":
			cfg.DrivePin = flagCfg.DrivePin
		case "receive-pin":
			cfg.ReceivePin = flagCfg.ReceivePin
		case "drive-active-high":
			cfg.DriveActiveHigh = flagCfg.DriveActiveHigh
		case "receive-active-high":
			cfg.ReceiveActiveHigh = flagCfg.ReceiveActiveHigh
		case "char-period":
			cfg.CharPeriod = flagCfg.CharPeriod
		case "timeout":
			cfg.ResponseTimeout = flagCfg.ResponseTimeout
		case "settle-delay":
			cfg.SettleDelay = flagCfg.SettleDelay
		case "post-write-wait":
			cfg.PostWriteWait = flagCfg.PostWriteWait
		case "measure":
			cfg.Measure = flagCfg.Measure
		case "digit-count":
			cfg.DigitCount = flagCfg.DigitCount
		case "force-wait":
			cfg.ForceWait = flagCfg.ForceWait
		case "log-level":
			cfg.LogLevel = flagCfg.LogLevel
		case "simulate":
			cfg.Simulate = flagCfg.Simulate
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Addresses) == 0 {
		return errors.New("no sensor addresses configured")
	}
	if _, err := c.SensorAddresses(); err != nil {
		return err
	}
	if c.DirPin != "" && (c.DrivePin != "" || c.ReceivePin != "") {
		return errors.New("dir_pin and drive_pin/receive_pin are mutually exclusive")
	}
	if (c.DrivePin == "") != (c.ReceivePin == "") {
		return errors.New("drive_pin and receive_pin must be set together")
	}

	return nil
}

// SensorAddresses returns the configured addresses. "all" expands to every
// valid address.
func (c *Config) SensorAddresses() ([]sdi12.Address, error) {
	if len(c.Addresses) == 1 && strings.EqualFold(c.Addresses[0], "all") {
		return sdi12.AllAddresses(), nil
	}

	addrs := make([]sdi12.Address, 0, len(c.Addresses))
	for _, s := range c.Addresses {
		addr, err := sdi12.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}

	return addrs, nil
}

// DriverOptions converts the timing settings to driver options.
func (c *Config) DriverOptions() []sdi12.Option {
	return []sdi12.Option{
		sdi12.WithCharPeriod(c.CharPeriod),
		sdi12.WithResponseTimeout(c.ResponseTimeout),
		sdi12.WithSettleDelay(c.SettleDelay),
		sdi12.WithPostWriteWait(c.PostWriteWait),
	}
}

// MeasureRequest returns the configured measurement command.
func (c *Config) MeasureRequest() sdi12.MeasureRequest {
	return sdi12.MeasureRequest{Kind: c.Measure, DigitCount: c.DigitCount, ForceWait: c.ForceWait}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}
