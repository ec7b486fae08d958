// Package capture is an opt-in debug aid: it frames every ENIP message a
// session sends or receives into a synthetic Ethernet/IP/TCP-or-UDP
// packet and writes it to a pcap file, so a capture of a session run
// against a simulator or over a loopback socket can still be opened in
// Wireshark and decoded with its CIP dissector. It never touches a live
// NIC — it fabricates headers around bytes this library already has in
// hand.
package capture

import (
	"fmt"
	"io"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/openenip/goenip/pkg/eip"
)

// Direction labels which way a captured message travelled.
type Direction int

const (
	// Outbound is a message the client sent to the device.
	Outbound Direction = iota
	// Inbound is a message the device sent back.
	Inbound
)

// Proto selects the synthetic transport header wrapping each message.
type Proto int

const (
	ProtoTCP Proto = iota
	ProtoUDP
)

var (
	clientMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	deviceMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// flowState tracks the running TCP sequence numbers for one synthetic
// client/device flow so a generated pcap at least has monotonic,
// ack-consistent sequence numbers rather than all-zero placeholders.
type flowState struct {
	clientSeq uint32
	deviceSeq uint32
}

// Writer appends synthetic packets to an underlying pcap file. It is
// not safe for concurrent use without external synchronization; a
// ClientSession provides that by calling its transport only while
// holding its own mutex.
type Writer struct {
	pw         *pcapgo.Writer
	closer     io.Closer
	proto      Proto
	clientIP   net.IP
	deviceIP   net.IP
	clientPort uint16
	devicePort uint16
	flow       flowState
}

// Option configures a Writer. NewWriter takes no options; an Option
// takes effect when it is called on a Writer.
type Option func(*Writer)

// WithAddresses overrides the synthetic client/device IPv4 addresses
// and ports baked into every packet written after it is applied. The
// defaults (192.0.2.10:51000 <-> 192.0.2.20:44818) are arbitrary — Wireshark only needs them to be
// internally consistent, not to match the real socket endpoints.
func WithAddresses(clientIP, deviceIP net.IP, clientPort, devicePort uint16) Option {
	return func(w *Writer) {
		w.clientIP = clientIP
		w.deviceIP = deviceIP
		w.clientPort = clientPort
		w.devicePort = devicePort
	}
}

// NewWriter wraps out (typically an *os.File) as a pcap capture of
// messages carried over proto, writing the file header immediately.
func NewWriter(out io.Writer, proto Proto) (*Writer, error) {
	pw := pcapgo.NewWriter(out)
	if err := pw.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("capture: write pcap header: %w", err)
	}
	w := &Writer{
		pw:         pw,
		proto:      proto,
		clientIP:   net.IPv4(192, 0, 2, 10),
		deviceIP:   net.IPv4(192, 0, 2, 20),
		clientPort: 51000,
		devicePort: 44818,
		flow:       flowState{clientSeq: 1, deviceSeq: 1},
	}
	if c, ok := out.(io.Closer); ok {
		w.closer = c
	}
	return w, nil
}

// Close closes the underlying writer if out satisfied io.Closer (e.g.
// an *os.File the caller passed to NewWriter); a writer built over a
// non-closing io.Writer is a no-op to close.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// WriteMessage frames msg as a single packet travelling dir and
// appends it to the capture.
func (w *Writer) WriteMessage(dir Direction, msg eip.Message) error {
	payload := msg.Encode()

	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, SrcIP: w.clientIP, DstIP: w.deviceIP}
	srcPort, dstPort := w.clientPort, w.devicePort

	if dir == Outbound {
		eth.SrcMAC, eth.DstMAC = clientMAC, deviceMAC
	} else {
		eth.SrcMAC, eth.DstMAC = deviceMAC, clientMAC
		ip.SrcIP, ip.DstIP = w.deviceIP, w.clientIP
		srcPort, dstPort = dstPort, srcPort
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	switch w.proto {
	case ProtoUDP:
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return fmt.Errorf("capture: checksum: %w", err)
		}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
			return fmt.Errorf("capture: serialize udp packet: %w", err)
		}
	default:
		ip.Protocol = layers.IPProtocolTCP
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(srcPort),
			DstPort: layers.TCPPort(dstPort),
			ACK:     true,
			PSH:     true,
		}
		if dir == Outbound {
			tcp.Seq, tcp.Ack = w.flow.clientSeq, w.flow.deviceSeq
			w.flow.clientSeq += uint32(len(payload))
		} else {
			tcp.Seq, tcp.Ack = w.flow.deviceSeq, w.flow.clientSeq
			w.flow.deviceSeq += uint32(len(payload))
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return fmt.Errorf("capture: checksum: %w", err)
		}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
			return fmt.Errorf("capture: serialize tcp packet: %w", err)
		}
	}

	return w.pw.WritePacket(gopacket.CaptureInfo{
		CaptureLength: len(buf.Bytes()),
		Length:        len(buf.Bytes()),
	}, buf.Bytes())
}
