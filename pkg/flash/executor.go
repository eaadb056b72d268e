package flash

import (
	"context"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"mpflash/pkg/device"
)

// Runner invokes the external flashing tool and returns its combined output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs the real esptool binary.
type ExecRunner struct {
	// Path is the esptool executable, looked up on PATH when not absolute.
	Path string
}

var _ Runner = ExecRunner{}

func (r ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	logrus.WithField("args", args).Debug("running esptool")
	out, err := exec.CommandContext(ctx, r.Path, args...).CombinedOutput()
	return string(out), err
}

// Executor erases and writes firmware on a confirmed device.
type Executor struct {
	runner       Runner
	primaryBaud  int
	fallbackBaud int
}

// NewExecutor returns an Executor writing at primaryBaud first and falling
// back to fallbackBaud once on retryable failures.
func NewExecutor(runner Runner, primaryBaud, fallbackBaud int) *Executor {
	return &Executor{
		runner:       runner,
		primaryBaud:  primaryBaud,
		fallbackBaud: fallbackBaud,
	}
}

// Flash erases the device, then writes the firmware image. See Erase and
// Write for the individual phases.
func (e *Executor) Flash(ctx context.Context, dev device.Device, firmwarePath string) ([]Attempt, error) {
	if err := e.Erase(ctx, dev); err != nil {
		return nil, err
	}
	return e.Write(ctx, dev, firmwarePath)
}

// Erase wipes the device flash. It is attempted exactly once: a failed erase
// leaves device state ambiguous, so the failure is surfaced as *EraseError
// with the tool output attached and no retry is made.
func (e *Executor) Erase(ctx context.Context, dev device.Device) error {
	if !dev.Confirmed() {
		return errors.New("refusing to erase unconfirmed device")
	}

	log := logrus.WithFields(logrus.Fields{
		"port": dev.Port,
		"chip": dev.Chip.ID(),
	})

	log.Info("erasing flash")
	out, err := e.runner.Run(ctx,
		"--chip", dev.Chip.ID(),
		"--port", dev.Port,
		"erase-flash")
	if err != nil {
		return &EraseError{Output: out, Err: err}
	}
	log.Info("flash erased")
	return nil
}

// Write writes the firmware image at the primary baud rate with at most one
// retry at the fallback rate, and only for timeout- or protocol-class
// failures: a wrong port or missing file is terminal immediately. Every
// invocation is returned as an Attempt, in order, including failures.
func (e *Executor) Write(ctx context.Context, dev device.Device, firmwarePath string) ([]Attempt, error) {
	if !dev.Confirmed() {
		return nil, errors.New("refusing to flash unconfirmed device")
	}

	log := logrus.WithFields(logrus.Fields{
		"port": dev.Port,
		"chip": dev.Chip.ID(),
	})

	var (
		attempts []Attempt
		out      string
		err      error
	)
	for _, baud := range []int{e.primaryBaud, e.fallbackBaud} {
		attempt := Attempt{BaudRate: baud, Index: len(attempts) + 1}
		log.WithField("baud", baud).Info("writing firmware")

		out, err = e.runner.Run(ctx,
			"--chip", dev.Chip.ID(),
			"--port", dev.Port,
			"--baud", strconv.Itoa(baud),
			"write-flash", "-z", "0x0", firmwarePath)
		if err == nil {
			attempt.Outcome = Success
			attempts = append(attempts, attempt)
			log.WithField("attempts", len(attempts)).Info("firmware written")
			return attempts, nil
		}

		attempt.Outcome = classifyFailure(out, err)
		attempts = append(attempts, attempt)
		log.WithFields(logrus.Fields{
			"baud":    baud,
			"outcome": attempt.Outcome,
		}).Warn("write attempt failed")

		if !attempt.Outcome.retryable() {
			break
		}
	}

	last := attempts[len(attempts)-1]
	return attempts, &WriteError{Outcome: last.Outcome, Output: out, Err: err}
}
