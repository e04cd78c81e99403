package transport

import (
	"io"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"

	"github.jpl.nasa.gov/bdube/odinflash/odinlog"
)

// WirelessPort is the TCP port every known wireless download-mode target
// uses, in either direction (spec.md 4.1/6).
const WirelessPort = 13579

// WirelessTargetIP is the address a host-initiated connection dials when
// the target is already running its own access point.
const WirelessTargetIP = "192.168.49.1"

var tcpLog = odinlog.New(odinlog.NET)

// TCP is a Communicator backed by a TCP socket, either accepted from a
// Listener (the target dials the host's access point) or dialed directly
// (the host dials the target's access point).
type TCP struct {
	conn    net.Conn
	timeout time.Duration
}

// ListenAndAccept opens a listener on 0.0.0.0:port (IPv4 only -- no known
// target speaks IPv6) and blocks until the first device connects.
func ListenAndAccept(port uint16) (*TCP, error) {
	ln, err := net.Listen("tcp4", net.JoinHostPort("0.0.0.0", portStr(port)))
	if err != nil {
		return nil, ioErr("listen", err)
	}
	defer ln.Close()

	tcpLog.Debugf("listening on %s", ln.Addr())
	conn, err := ln.Accept()
	if err != nil {
		return nil, ioErr("accept", err)
	}
	tcpLog.Debugf("accepted connection from %s", conn.RemoteAddr())

	t := &TCP{conn: conn, timeout: DefaultTimeout}
	t.applyDeadlines()
	return t, nil
}

// Dial connects to addr:port with an exponential backoff retry, mirroring
// comm.BackingOffTCPConnMaker -- wireless targets do not like being
// connection-thrashed immediately after entering download mode.
func Dial(addr string, port uint16) (*TCP, error) {
	target := net.JoinHostPort(addr, portStr(port))

	var conn net.Conn
	op := func() error {
		var err error
		conn, err = net.DialTimeout("tcp4", target, DefaultTimeout)
		return err
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         5 * time.Second,
		MaxElapsedTime:      30 * time.Second,
		Clock:               backoff.SystemClock,
	})
	if err != nil {
		return nil, ioErr("dial", err)
	}
	tcpLog.Debugf("connected to %s", target)

	t := &TCP{conn: conn, timeout: DefaultTimeout}
	t.applyDeadlines()
	return t, nil
}

func (t *TCP) applyDeadlines() {
	deadline := time.Now().Add(t.timeout)
	t.conn.SetReadDeadline(deadline)
	t.conn.SetWriteDeadline(deadline)
}

// Send writes data to the target. A zero-length call is a no-op on TCP
// (spec.md 4.1) -- the framing quirk only exists on USB.
func (t *TCP) Send(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	t.applyDeadlines()
	tcpLog.Tracef("send %d bytes", len(data))
	_, err := t.conn.Write(data)
	return ioErr("send", err)
}

// RecvExact blocks until exactly n bytes have been read. n == 0 is a
// successful no-op on TCP.
func (t *TCP) RecvExact(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	t.applyDeadlines()
	buf := make([]byte, n)
	_, err := io.ReadFull(t.conn, buf)
	if err != nil {
		return nil, ioErr("recv_exact", err)
	}
	tcpLog.Tracef("recv_exact %d bytes", n)
	return buf, nil
}

// Recv returns whatever is immediately available without blocking for the
// full timeout -- it uses a short deadline and treats a timeout as "no
// data yet" rather than an error.
func (t *TCP) Recv() ([]byte, error) {
	t.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	defer t.applyDeadlines()

	buf := make([]byte, 64*1024)
	n, err := t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, ioErr("recv", err)
	}
	tcpLog.Tracef("recv (nonblocking) %d bytes", n)
	return buf[:n], nil
}

// SetTimeout changes the read/write timeout applied to subsequent calls.
func (t *TCP) SetTimeout(d time.Duration) {
	tcpLog.Infof("setting timeout to %s", d)
	t.timeout = d
	t.applyDeadlines()
}

// Close closes the underlying socket. There is no device-side reset over
// TCP; closing simply tears down the connection (an RST if data is still
// in flight).
func (t *TCP) Close() error {
	return t.conn.Close()
}

func portStr(port uint16) string {
	return strconv.Itoa(int(port))
}
