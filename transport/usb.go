package transport

import (
	"time"

	"github.com/google/gousb"

	"github.jpl.nasa.gov/bdube/odinflash/odinlog"
)

// SamsungVendorID is the USB vendor id every known download-mode target
// presents.
const SamsungVendorID = 0x04E8

// ValidProductIDs lists the USB product ids seen on download-mode targets.
// Taken from prior reverse-engineering (Heimdall); may not be exhaustive.
var ValidProductIDs = []gousb.ID{0x6601, 0x685D, 0x68C3}

// cdcDataClass is the USB interface class download-mode targets expose
// their two bulk endpoints under.
const cdcDataClass = gousb.ClassData

var usbLog = odinlog.New(odinlog.USB)

// USB is a Communicator backed by a pair of USB bulk endpoints.
type USB struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	iface  *gousb.Interface
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
	detach func()

	timeout time.Duration
}

// Open enumerates USB devices for the first one matching SamsungVendorID
// and any of ValidProductIDs, claims its CDC-Data interface, and returns a
// ready-to-use Communicator.
func Open() (*USB, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != gousb.ID(SamsungVendorID) {
			return false
		}
		for _, pid := range ValidProductIDs {
			if desc.Product == pid {
				return true
			}
		}
		return false
	})
	if err != nil {
		ctx.Close()
		return nil, ioErr("enumerate", err)
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, ioErr("enumerate", errNoDevice)
	}
	// Close any extras we didn't want; we only drive one device at a time
	// (spec.md non-goal: no concurrent sessions against the same device).
	for _, extra := range devs[1:] {
		extra.Close()
	}
	dev := devs[0]

	// Not supported on all platforms (e.g. macOS); must not fail the
	// constructor if unsupported (spec.md 4.1).
	_ = dev.SetAutoDetach(true)

	iface, done, in, out, err := claimDataInterface(dev)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}

	usbLog.Debugf("connected to device %s", dev.Desc)
	return &USB{
		ctx:     ctx,
		dev:     dev,
		iface:   iface,
		in:      in,
		out:     out,
		detach:  done,
		timeout: DefaultTimeout,
	}, nil
}

func claimDataInterface(dev *gousb.Device) (*gousb.Interface, func(), *gousb.InEndpoint, *gousb.OutEndpoint, error) {
	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return nil, nil, nil, nil, ioErr("active config", err)
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return nil, nil, nil, nil, ioErr("claim config", err)
	}

	for _, ifDesc := range cfg.Desc.Interfaces {
		for _, alt := range ifDesc.AltSettings {
			if alt.Class != cdcDataClass || len(alt.Endpoints) != 2 {
				continue
			}
			iface, err := cfg.Interface(ifDesc.Number, alt.Number)
			if err != nil {
				continue
			}

			var inAddr, outAddr gousb.EndpointAddress
			var haveIn, haveOut bool
			for addr, epDesc := range alt.Endpoints {
				if epDesc.Direction == gousb.EndpointDirectionIn {
					inAddr, haveIn = addr, true
				} else {
					outAddr, haveOut = addr, true
				}
			}
			if !haveIn || !haveOut {
				iface.Close()
				continue
			}

			in, err := iface.InEndpoint(int(inAddr.Number()))
			if err != nil {
				iface.Close()
				return nil, nil, nil, nil, ioErr("in endpoint", err)
			}
			out, err := iface.OutEndpoint(int(outAddr.Number()))
			if err != nil {
				iface.Close()
				return nil, nil, nil, nil, ioErr("out endpoint", err)
			}
			return iface, iface.Close, in, out, nil
		}
	}
	cfg.Close()
	return nil, nil, nil, nil, ioErr("claim interface", errNoCDCInterface)
}

// Send writes data as a single bulk OUT transfer. A zero-length call
// issues an empty bulk transfer, used by the protocol as a framing
// marker (spec.md 4.1, 4.6).
func (u *USB) Send(data []byte) error {
	usbLog.Tracef("send %d bytes", len(data))
	_, err := u.out.Write(data)
	return ioErr("send", err)
}

// RecvExact blocks until n bytes have been read via one or more bulk IN
// transfers. n == 0 issues an empty bulk IN read -- like Send, the
// transfer itself is the framing marker, not the byte count, so it must
// still reach the device even though the loop below would otherwise
// never run.
func (u *USB) RecvExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		if _, err := u.in.Read(buf); err != nil {
			return nil, ioErr("recv_exact", err)
		}
		usbLog.Tracef("recv_exact 0 bytes")
		return buf, nil
	}

	total := 0
	for total < n {
		read, err := u.in.Read(buf[total:])
		if err != nil {
			return nil, ioErr("recv_exact", err)
		}
		if read == 0 {
			return nil, ioErr("recv_exact", errShortRead)
		}
		total += read
	}
	usbLog.Tracef("recv_exact %d bytes", n)
	return buf, nil
}

// Recv performs a single non-blocking-ish bulk IN read, returning however
// much data is immediately available. gousb has no true non-blocking
// mode, so a very short timeout is substituted instead.
func (u *USB) Recv() ([]byte, error) {
	buf := make([]byte, 1024*1024)
	n, err := readWithin(u.in, buf, time.Millisecond)
	if err != nil {
		return nil, nil // timeout == "nothing buffered yet", not an error
	}
	usbLog.Tracef("recv (nonblocking) %d bytes", n)
	return buf[:n], nil
}

// SetTimeout records and logs the timeout. The stored value is not
// applied to any transfer: Send and RecvExact block until the bulk
// transfer completes or fails, and Recv always waits a fixed 1 ms.
func (u *USB) SetTimeout(d time.Duration) {
	usbLog.Infof("setting timeout to %s", d)
	u.timeout = d
}

// Close resets the device so the next connection starts clean, then
// releases the interface and context.
func (u *USB) Close() error {
	usbLog.Infof("dropping connection, resetting device")
	err := u.dev.Reset()
	if u.detach != nil {
		u.detach()
	}
	u.dev.Close()
	u.ctx.Close()
	if err != nil {
		return ioErr("reset", err)
	}
	usbLog.Infof("device reset OK")
	return nil
}
