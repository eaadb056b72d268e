package probe

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// probeSequence is the command transcript sent to the device. The commands
// are benign: on MicroPython they print identifying output, on anything else
// they are ignored or echo an error that is itself classifiable.
var probeSequence = []string{
	"\r\n",
	"import sys\r\n",
	"print(sys.version)\r\n",
	"print(sys.implementation)\r\n",
	"print(sys.platform)\r\n",
}

// Prober fingerprints the firmware on a serial port. The zero value is not
// usable; construct with New.
type Prober struct {
	baud         int
	readTimeout  time.Duration
	settleDelay  time.Duration
	commandDelay time.Duration

	open func(name string, mode *serial.Mode) (serial.Port, error)
}

// New returns a Prober that opens ports at the given baud rate and bounds
// each read by readTimeout.
func New(baud int, readTimeout time.Duration) *Prober {
	return &Prober{
		baud:         baud,
		readTimeout:  readTimeout,
		settleDelay:  2 * time.Second,
		commandDelay: 500 * time.Millisecond,
		open:         serial.Open,
	}
}

// Probe opens the port, runs the probe transcript, and classifies the
// response. The port is closed before Probe returns on every path, so the
// caller may hand the port to the flash executor immediately afterwards.
//
// An open failure is returned as *PortBusyError. A silent device is not an
// error: it yields a NoResponse classification.
func (p *Prober) Probe(ctx context.Context, portName string) (Result, error) {
	log := logrus.WithField("port", portName)
	log.WithField("baud", p.baud).Debug("opening serial port for probe")

	port, err := p.open(portName, &serial.Mode{BaudRate: p.baud})
	if err != nil {
		return Result{}, &PortBusyError{Port: portName, Err: err}
	}
	defer port.Close()

	if err := port.SetReadTimeout(p.readTimeout); err != nil {
		return Result{}, errors.Wrap(err, "set read timeout")
	}

	// Boards reset on DTR toggle when the port opens. Give the firmware a
	// moment to boot, then drop whatever the boot ROM printed.
	if err := sleepCtx(ctx, p.settleDelay); err != nil {
		return Result{}, err
	}
	if err := port.ResetInputBuffer(); err != nil {
		return Result{}, errors.Wrap(err, "reset input buffer")
	}

	raw, err := p.exchange(ctx, port)
	if err != nil {
		return Result{}, err
	}

	res := Classify(raw)
	log.WithFields(logrus.Fields{
		"type":       res.Type,
		"version":    res.Version,
		"confidence": res.Confidence,
		"bytes":      len(raw),
	}).Debug("probe classified")

	return res, nil
}

// exchange writes the probe sequence and collects everything the device says
// in between. It works on a plain io.ReadWriter so tests can feed it canned
// transcripts.
func (p *Prober) exchange(ctx context.Context, rw io.ReadWriter) (string, error) {
	var out strings.Builder
	for _, cmd := range probeSequence {
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		if _, err := rw.Write([]byte(cmd)); err != nil {
			return out.String(), errors.Wrap(err, "write probe command")
		}
		if err := sleepCtx(ctx, p.commandDelay); err != nil {
			return out.String(), err
		}
		drain(rw, &out)
	}
	return out.String(), nil
}

// drain reads until the port times out (a zero-byte read) or errors. The
// read timeout set on the port bounds each iteration.
func drain(r io.Reader, out *strings.Builder) {
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err != nil || n == 0 {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
