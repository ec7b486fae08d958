// Command supportedclasses is an example collaborator, not part of
// the core library: it dials a device, probes its identity via
// ListIdentity, then dumps its supported CIP object classes via
// GetSupportedClasses.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openenip/goenip/internal/capture"
	"github.com/openenip/goenip/internal/logging"
	"github.com/openenip/goenip/pkg/session"
	"github.com/openenip/goenip/pkg/transport"
)

type flags struct {
	address     string
	udp         bool
	capturePath string
}

func main() {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "supportedclasses",
		Short: "Probe a device's identity and dump its supported CIP classes",
		Long: `supportedclasses dials an EtherNet/IP device, issues a ListIdentity
request to report its vendor/product identity, then calls GetSupportedClasses
(Message Router attribute 1) and prints the device's supported CIP object
class ids in ascending order.`,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			return run(f)
		},
	}

	cmd.Flags().StringVar(&f.address, "address", "192.168.1.10:44818", "device address (host:port)")
	cmd.Flags().BoolVar(&f.udp, "udp", false, "use UDP instead of TCP")
	cmd.Flags().StringVar(&f.capturePath, "capture-pcap", "", "write every ENIP message to this pcap file for offline inspection")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f *flags) error {
	logger, err := logging.NewDevelopment()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	sess, closeTransport, err := dial(f, logger)
	if err != nil {
		return err
	}
	defer closeTransport()

	if identities, err := sess.ListIdentity(); err != nil {
		logger.Warnf("list identity failed: %v", err)
	} else {
		for _, id := range identities {
			fmt.Printf("device: %s vendor=0x%04X product_code=0x%04X rev=%d.%d\n",
				id.ProductName, id.VendorID, id.ProductCode, id.RevisionMajor, id.RevisionMinor)
		}
	}

	if err := sess.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Disconnect()

	classes, err := sess.GetSupportedClasses()
	if err != nil {
		return fmt.Errorf("get supported classes: %w", err)
	}

	fmt.Println("supported classes:")
	for _, c := range classes {
		fmt.Printf("  0x%04X\n", c)
	}
	return nil
}

func dial(f *flags, logger logging.Logger) (*session.ClientSession, func(), error) {
	if f.udp {
		tr, err := transport.NewUDPTransport(f.address)
		if err != nil {
			return nil, nil, fmt.Errorf("dial udp %s: %w", f.address, err)
		}
		t, closeCapture, err := maybeCapture(f, logger, tr, capture.ProtoUDP)
		if err != nil {
			tr.Close()
			return nil, nil, err
		}
		return session.New(t, session.WithLogger(logger)), func() { closeCapture(); tr.Close() }, nil
	}
	tr, err := transport.NewTCPTransport(f.address)
	if err != nil {
		return nil, nil, fmt.Errorf("dial tcp %s: %w", f.address, err)
	}
	t, closeCapture, err := maybeCapture(f, logger, tr, capture.ProtoTCP)
	if err != nil {
		tr.Close()
		return nil, nil, err
	}
	return session.New(t, session.WithLogger(logger)), func() { closeCapture(); tr.Close() }, nil
}

// maybeCapture wraps tr in a capture.Transport writing to f.capturePath
// when the flag is set; otherwise it returns tr unchanged and a no-op
// closer.
func maybeCapture(f *flags, logger logging.Logger, tr transport.Transport, proto capture.Proto) (transport.Transport, func(), error) {
	if f.capturePath == "" {
		return tr, func() {}, nil
	}
	file, err := os.Create(f.capturePath)
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create %s: %w", f.capturePath, err)
	}
	w, err := capture.NewWriter(file, proto)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("capture: %w", err)
	}
	ct := capture.Wrap(tr, w).OnError(func(err error) {
		logger.Warnf("capture write failed: %v", err)
	})
	return ct, func() { file.Close() }, nil
}
