// Package config loads the YAML-based ClientConfig a caller uses to
// construct a transport and session: addressing, timeouts, the
// default route path, and the handful of ForwardOpen-adjacent values
// (originator vendor id, connection timeout multiplier) that have no
// other natural home. It only loads and validates data; it has no
// opinion on process startup or flag parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openenip/goenip/pkg/epath"
)

// TransportKind selects which pkg/transport adapter a ClientConfig
// describes.
type TransportKind string

const (
	TransportTCP TransportKind = "tcp"
	TransportUDP TransportKind = "udp"
)

// RouteSegment is one Port segment of the default UnconnectedSend
// route path, in YAML-friendly form.
type RouteSegment struct {
	Port        byte `yaml:"port"`
	LinkAddress byte `yaml:"link_address"`
}

// ClientConfig is the data a caller needs to dial a device and drive
// a ClientSession against it.
type ClientConfig struct {
	Address                     string         `yaml:"address"`
	Transport                   TransportKind  `yaml:"transport"`
	IOTimeout                   time.Duration  `yaml:"io_timeout"`
	Route                       []RouteSegment `yaml:"route"`
	OriginatorVendorID          uint16         `yaml:"originator_vendor_id"`
	ConnectionTimeoutMultiplier byte           `yaml:"connection_timeout_multiplier"`
}

// Default returns the configuration this library assumes when nothing
// else is specified: TCP on the standard EtherNet/IP port, a 5 second
// I/O timeout, and a single Port segment routing to backplane slot 2.
func Default() ClientConfig {
	return ClientConfig{
		Transport:                   TransportTCP,
		IOTimeout:                   5 * time.Second,
		Route:                       []RouteSegment{{Port: 1, LinkAddress: 2}},
		OriginatorVendorID:          0x01,
		ConnectionTimeoutMultiplier: 0x03,
	}
}

// Load reads and validates a ClientConfig from a YAML file, filling
// in Default() for any field the file leaves zero-valued.
func Load(path string) (ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(cfg.Route) == 0 {
		cfg.Route = Default().Route
	}

	if err := cfg.validate(); err != nil {
		return ClientConfig{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c ClientConfig) validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	switch c.Transport {
	case TransportTCP, TransportUDP:
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", TransportTCP, TransportUDP, c.Transport)
	}
	if c.IOTimeout <= 0 {
		return fmt.Errorf("io_timeout must be positive")
	}
	if len(c.Route) == 0 {
		return fmt.Errorf("route must have at least one segment")
	}
	return nil
}

// RoutePath builds the epath.Path an UnconnectedSend should route
// through, from the configured Port segments.
func (c ClientConfig) RoutePath() (epath.Path, error) {
	var path epath.Path
	for _, seg := range c.Route {
		ps, err := epath.NewPortSegment(seg.Port, seg.LinkAddress)
		if err != nil {
			return epath.Path{}, fmt.Errorf("config: route segment port=%d link=%d: %w", seg.Port, seg.LinkAddress, err)
		}
		path.Push(ps)
	}
	return path, nil
}
