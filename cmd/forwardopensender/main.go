// Command forwardopensender is an example collaborator, not part of
// the core library: it dials a device, builds a ClientSession, and
// repeatedly issues ForwardOpen against the Connection Manager. A
// single --count/--interval/--close flag set covers both a burst of
// back-to-back opens with no close (useful for stressing a device's
// connection table) and a slow open/close cycle repeated on an
// interval (useful for watching a device recover a connection slot
// over time).
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openenip/goenip/internal/capture"
	"github.com/openenip/goenip/internal/logging"
	"github.com/openenip/goenip/pkg/cip"
	"github.com/openenip/goenip/pkg/connmgr"
	"github.com/openenip/goenip/pkg/epath"
	"github.com/openenip/goenip/pkg/session"
	"github.com/openenip/goenip/pkg/transport"
)

type flags struct {
	address     string
	udp         bool
	count       int
	interval    time.Duration
	close       bool
	vendorID    uint16
	timeoutMx   uint8
	capturePath string
}

func main() {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "forwardopensender",
		Short: "Repeatedly issue ForwardOpen against a device's Connection Manager",
		Long: `forwardopensender dials an EtherNet/IP device and issues one or more
ForwardOpen requests against the Connection Manager (class 0x06, instance 1),
targeting Message Router (class 0x02, instance 1) as the connection point.

Use --count N --close=false for a burst of opens with no close, or
--count 0 --interval 1m for a single open/close cycle repeated
indefinitely.`,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			return run(f)
		},
	}

	cmd.Flags().StringVar(&f.address, "address", "192.168.1.10:44818", "device address (host:port)")
	cmd.Flags().BoolVar(&f.udp, "udp", false, "use UDP instead of TCP")
	cmd.Flags().IntVar(&f.count, "count", 1, "number of ForwardOpen requests to send (0 = run forever)")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "delay between requests (0 = back-to-back)")
	cmd.Flags().BoolVar(&f.close, "close", true, "issue ForwardClose after each successful open")
	cmd.Flags().Uint16Var(&f.vendorID, "vendor-id", 0x011B, "originator vendor id")
	cmd.Flags().Uint8Var(&f.timeoutMx, "timeout-multiplier", 2, "connection timeout multiplier")
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

	if err := sess.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Disconnect()

	connectionPoint := epath.ClassInstance(uint32(cip.ClassMessageRouter), 1)

	for i := 0; f.count == 0 || i < f.count; i++ {
		req := buildForwardOpen(f, connectionPoint)
		resp, err := sess.ForwardOpen(req)
		if err != nil {
			logger.Warnf("forward open %d failed: %v", i, err)
		} else {
			logger.Infof("forward open %d succeeded: OT=0x%08X TO=0x%08X", i, resp.OTConnectionID, resp.TOConnectionID)
			if f.close {
				closeReq := connmgr.ForwardCloseRequest{
					PriorityTimeTick:       req.PriorityTimeTick,
					TimeoutTicks:           req.TimeoutTicks,
					ConnectionSerialNumber: req.ConnectionSerialNumber,
					OriginatorVendorID:     req.OriginatorVendorID,
					OriginatorSerialNumber: req.OriginatorSerialNumber,
					ConnectionPath:         connectionPoint,
				}
				if _, err := sess.ForwardClose(closeReq); err != nil {
					logger.Warnf("forward close %d failed: %v", i, err)
				}
			}
		}
		if f.interval > 0 {
			time.Sleep(f.interval)
		}
	}
	return nil
}

func buildForwardOpen(f *flags, connectionPoint epath.Path) connmgr.ForwardOpenRequest {
	return connmgr.ForwardOpenRequest{
		PriorityTimeTick:            0x0A,
		TimeoutTicks:                0xFF,
		OTConnectionID:              0,
		TOConnectionID:              rand.Uint32(),
		ConnectionSerialNumber:      uint16(rand.Intn(0x10000)),
		OriginatorVendorID:          f.vendorID,
		OriginatorSerialNumber:      rand.Uint32(),
		ConnectionTimeoutMultiplier: f.timeoutMx,
		OTRPIMicroseconds:           50_000_000,
		OTNetworkParams:             0x43FF,
		TORPIMicroseconds:           50_000_000,
		TONetworkParams:             0x43FF,
		TransportClassAndTrigger:    0xA3,
		ConnectionPath:              connectionPoint,
	}
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
