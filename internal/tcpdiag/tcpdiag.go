// Package tcpdiag samples TCP_INFO off a live connection so a caller
// whose call_service timed out can tell a slow device from a lossy
// link before deciding to reconnect or give up.
package tcpdiag

import (
	"fmt"
	"net"
	"time"

	"github.com/mikioh/tcpinfo"
	"github.com/mikioh/tcpopt"
)

// Snapshot is the subset of TCP_INFO this library cares about.
type Snapshot struct {
	RTT         time.Duration
	RTTVar      time.Duration
	Retransmits uint32
	CongWindow  uint32
}

// Recorder receives a Snapshot after every Sample call. *metrics.Registry
// satisfies it without this package importing internal/metrics.
type Recorder interface {
	RecordTCPInfo(Snapshot)
}

// Sample reads TCP_INFO off conn's underlying socket. It works only
// on a *net.TCPConn (the session's TCPTransport always dials one);
// anything else is a programmer error, not a runtime condition to
// recover from gracefully.
func Sample(conn *net.TCPConn) (Snapshot, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Snapshot{}, fmt.Errorf("tcpdiag: syscall conn: %w", err)
	}

	var info tcpinfo.Info
	var opts [4]tcpopt.Option
	buf := make([]byte, 256)

	var snap Snapshot
	var ctrlErr error
	err = raw.Control(func(fd uintptr) {
		v, getErr := tcpinfo.Get(fd, buf, opts[:0]...)
		if getErr != nil {
			ctrlErr = getErr
			return
		}
		ti, ok := v.(*tcpinfo.Info)
		if !ok {
			ctrlErr = fmt.Errorf("tcpdiag: unexpected TCP_INFO value type %T", v)
			return
		}
		info = *ti
		snap = Snapshot{
			RTT:         info.RTT,
			RTTVar:      info.RTTVar,
			Retransmits: uint32(info.BytesRetrans),
			CongWindow:  uint32(info.SndCWnd),
		}
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("tcpdiag: control: %w", err)
	}
	if ctrlErr != nil {
		return Snapshot{}, fmt.Errorf("tcpdiag: get tcp_info: %w", ctrlErr)
	}
	return snap, nil
}

// SampleInto is Sample followed by a report to rec, for callers that
// already hold a Recorder (e.g. an internal/metrics.Registry) and
// want one call instead of two.
func SampleInto(conn *net.TCPConn, rec Recorder) error {
	snap, err := Sample(conn)
	if err != nil {
		return err
	}
	rec.RecordTCPInfo(snap)
	return nil
}
