// Package config loads operator-tunable defaults for the transport and
// diagnostics layers -- USB vendor/product ids, TCP endpoints, timeouts,
// and the diagnostic HTTP address -- from an optional YAML file layered
// over compiled-in defaults, the same two-step koanf load this project's
// HTTP servers use for their own configuration.
package config

import (
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

// FileName is the default config file name looked up in the working
// directory, mirroring andor-http's ConfigFileName convention.
const FileName = "odinflash.yml"

// USB holds the device-matching parameters transport.USB's constructor
// uses to find a target.
type USB struct {
	VendorID  uint16   `yaml:"VendorID"`
	ProductID []uint16 `yaml:"ProductID"`
}

// TCP holds the endpoint parameters transport.TCP's constructors use.
type TCP struct {
	ListenPort uint16 `yaml:"ListenPort"`
	DialAddr   string `yaml:"DialAddr"`
	DialPort   uint16 `yaml:"DialPort"`
}

// Diag holds the diagnostic HTTP server's bind address.
type Diag struct {
	Addr string `yaml:"Addr"`
	Root string `yaml:"Root"`
}

// Watch holds the archive-watch directory an operator wants polled for
// dropped-in .tar.md5 files.
type Watch struct {
	Dir string `yaml:"Dir"`
}

// Config is the full set of operator-overridable defaults.
type Config struct {
	USB            USB    `yaml:"USB"`
	TCP            TCP    `yaml:"TCP"`
	TimeoutSeconds int    `yaml:"TimeoutSeconds"`
	Diag           Diag   `yaml:"Diag"`
	Watch          Watch  `yaml:"Watch"`
}

// defaults mirrors spec.md 6's enumerated USB ids and TCP endpoints.
func defaults() Config {
	return Config{
		USB: USB{
			VendorID:  0x04E8,
			ProductID: []uint16{0x6601, 0x685D, 0x68C3},
		},
		TCP: TCP{
			ListenPort: 13579,
			DialAddr:   "192.168.49.1",
			DialPort:   13579,
		},
		TimeoutSeconds: 30,
		Diag: Diag{
			Addr: ":8090",
			Root: "/",
		},
		Watch: Watch{
			Dir: ".",
		},
	}
}

// Load returns the compiled-in defaults overridden by path (if it
// exists); a missing file is not an error, matching setupconfig's
// treatment of a missing andor-http.yml.
func Load(path string) (Config, error) {
	if path == "" {
		path = FileName
	}
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "yaml"), nil); err != nil {
		return Config{}, err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such file") {
			return Config{}, err
		}
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
