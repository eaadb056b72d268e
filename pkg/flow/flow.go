package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"mpflash/pkg/chip"
	"mpflash/pkg/device"
	"mpflash/pkg/firmware"
	"mpflash/pkg/flash"
	"mpflash/pkg/probe"
	"mpflash/pkg/serialport"
	"mpflash/pkg/ui"
)

// Prober fingerprints the firmware on a port.
type Prober interface {
	Probe(ctx context.Context, port string) (probe.Result, error)
}

// Catalog produces firmware candidates and makes the chosen one available
// on disk.
type Catalog interface {
	Candidates(ctx context.Context, model chip.Model) (candidates []firmware.Candidate, degraded bool, err error)
	Materialize(ctx context.Context, cand firmware.Candidate) (string, error)
}

// Flasher erases and writes a confirmed device.
type Flasher interface {
	Erase(ctx context.Context, dev device.Device) error
	Write(ctx context.Context, dev device.Device, firmwarePath string) ([]flash.Attempt, error)
}

// Orchestrator is the session state machine. Collaborators hold the serial
// port one at a time: the Orchestrator guarantees the prober has released it
// before the flasher opens it, and vice versa, simply by never overlapping
// their calls.
type Orchestrator struct {
	ports   serialport.Lister
	prober  Prober
	catalog Catalog
	flasher Flasher
	prompt  ui.Prompter

	state State
	log   *logrus.Entry
}

// New wires an Orchestrator from its collaborators.
func New(ports serialport.Lister, prober Prober, catalog Catalog, flasher Flasher, prompt ui.Prompter) *Orchestrator {
	return &Orchestrator{
		ports:   ports,
		prober:  prober,
		catalog: catalog,
		flasher: flasher,
		prompt:  prompt,
		state:   StateInit,
		log:     logrus.WithField("component", "flow"),
	}
}

// State returns the machine's current state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(next State) {
	o.log.WithFields(logrus.Fields{
		"from": o.state,
		"to":   next,
	}).Debug("state transition")
	o.state = next
}

// Run executes one full session and returns its record. The error is non-nil
// exactly when the session ends Failed; a user cancellation is a normal
// outcome with Status Cancelled and a nil error.
func (o *Orchestrator) Run(ctx context.Context) (*flash.Session, error) {
	session := &flash.Session{}

	fail := func(err error) (*flash.Session, error) {
		o.transition(StateFailed)
		session.Status = flash.Failed
		return session, err
	}
	cancelled := func() (*flash.Session, error) {
		o.transition(StateCancelled)
		session.Status = flash.Cancelled
		return session, nil
	}

	// Device selection.
	o.transition(StateDeviceScan)
	dev, err := o.selectDevice()
	if errors.Is(err, ui.ErrCancelled) {
		return cancelled()
	}
	if err != nil {
		return fail(err)
	}
	dev.Confirm()
	session.Device = *dev
	o.transition(StateDeviceConfirmed)

	// Fingerprint whatever runs on the device right now.
	o.transition(StateFirmwareProbe)
	probed, err := o.probeWithRetry(ctx, dev.Port)
	if errors.Is(err, ui.ErrCancelled) {
		return cancelled()
	}
	if err != nil {
		return fail(err)
	}

	// Overwrite confirmation is skipped only when nothing answered: a blank
	// chip has nothing to lose. Every recognized firmware, however shaky the
	// classification, needs an explicit yes.
	if probed.Type != probe.NoResponse {
		o.transition(StateConfirmOverwrite)
		proceed, err := o.prompt.Confirm(
			"Overwrite current firmware?",
			overwriteDetails(probed),
			"Yes, overwrite it with MicroPython",
			"No, keep the current firmware")
		if errors.Is(err, ui.ErrCancelled) {
			return cancelled()
		}
		if err != nil {
			return fail(err)
		}
		if !proceed {
			o.log.Info("user kept the current firmware")
			return cancelled()
		}
	}

	// Firmware selection.
	o.transition(StateFirmwareSelect)
	cand, err := o.selectFirmware(ctx, *dev)
	if errors.Is(err, ui.ErrCancelled) {
		return cancelled()
	}
	if err != nil {
		return fail(err)
	}
	session.Candidate = *cand

	imagePath, err := o.catalog.Materialize(ctx, *cand)
	if err != nil {
		return fail(errors.Wrap(err, "materialize firmware"))
	}

	// Erase, then write with the executor's baud fallback.
	o.transition(StateFlashErase)
	if err := o.flasher.Erase(ctx, *dev); err != nil {
		return fail(err)
	}

	o.transition(StateFlashWrite)
	attempts, err := o.flasher.Write(ctx, *dev, imagePath)
	session.Attempts = attempts
	if err != nil {
		return fail(err)
	}

	// Re-probe: the session only counts as Completed when the device now
	// presents a MicroPython banner.
	o.transition(StateVerify)
	verified, err := o.prober.Probe(ctx, dev.Port)
	if err != nil {
		return fail(errors.Wrap(err, "post-flash probe"))
	}
	if verified.Type != probe.MicroPython {
		return fail(&VerifyError{Result: verified})
	}

	o.log.WithFields(logrus.Fields{
		"port":    dev.Port,
		"version": verified.Version,
	}).Info("MicroPython verified on device")

	session.Status = flash.Completed
	o.transition(StateDone)
	return session, nil
}

const manualEntryLabel = "Enter port manually"

// selectDevice turns the enumerated port list into one confirmed device.
// Zero enumerated ports is not a failure: the user is offered manual entry.
func (o *Orchestrator) selectDevice() (*device.Device, error) {
	ports, err := o.ports.List()
	if err != nil {
		return nil, errors.Wrap(err, "scan serial ports")
	}

	if len(ports) == 0 {
		o.log.Warn("no serial devices detected, offering manual entry")
		return o.manualDevice()
	}

	labels := make([]string, 0, len(ports)+1)
	for _, p := range ports {
		labels = append(labels, p.Label())
	}
	labels = append(labels, manualEntryLabel)

	idx, err := o.prompt.Select("Select ESP32 device", labels)
	if err != nil {
		return nil, err
	}
	if idx == len(ports) {
		return o.manualDevice()
	}

	picked := ports[idx]
	model := picked.Guess
	if model == chip.Unknown {
		// USB IDs could not pin the silicon; the user has to say.
		model, err = o.chooseChip(picked.Name)
		if err != nil {
			return nil, err
		}
	}

	return &device.Device{Port: picked.Name, Chip: model}, nil
}

// manualDevice builds a device from typed-in port and chip. It carries the
// Manual mark so later chip mismatches get reported rather than trusted.
func (o *Orchestrator) manualDevice() (*device.Device, error) {
	port, err := o.prompt.Input("Enter device port", "/dev/tty.usbmodem114301")
	if err != nil {
		return nil, err
	}
	if port == "" {
		return nil, errors.New("no device port given")
	}

	model, err := o.chooseChip(port)
	if err != nil {
		return nil, err
	}

	return &device.Device{Port: port, Chip: model, Manual: true}, nil
}

func (o *Orchestrator) chooseChip(port string) (chip.Model, error) {
	models := chip.Supported()
	labels := make([]string, 0, len(models))
	for _, m := range models {
		labels = append(labels, m.String())
	}

	idx, err := o.prompt.Select(fmt.Sprintf("Select chip model for %s", port), labels)
	if err != nil {
		return chip.Unknown, err
	}
	return models[idx], nil
}

// probeWithRetry runs the fingerprinter, letting the user free a busy port
// and try again. Any other probe failure is passed through.
func (o *Orchestrator) probeWithRetry(ctx context.Context, port string) (probe.Result, error) {
	for {
		res, err := o.prober.Probe(ctx, port)
		if err == nil {
			return res, nil
		}

		var busy *probe.PortBusyError
		if !errors.As(err, &busy) {
			return probe.Result{}, err
		}

		retry, cerr := o.prompt.Confirm(
			"Serial port busy",
			busy.Error()+"\n\nClose any serial monitor or IDE holding the port.",
			"Retry, the port is free now",
			"Abort")
		if cerr != nil {
			return probe.Result{}, cerr
		}
		if !retry {
			return probe.Result{}, ui.ErrCancelled
		}
	}
}

// selectFirmware presents the merged candidate list. For manually entered
// devices a chip mismatch between device and image is a reportable decision,
// never a silent correction.
func (o *Orchestrator) selectFirmware(ctx context.Context, dev device.Device) (*firmware.Candidate, error) {
	candidates, degraded, err := o.catalog.Candidates(ctx, dev.Chip)
	if err != nil {
		return nil, errors.Wrap(err, "assemble firmware catalog")
	}

	title := fmt.Sprintf("Select MicroPython firmware for %s", dev.Chip)
	if degraded {
		o.log.Warn("firmware index unreachable, showing local files only")
		title += " (offline, local files only)"
	}

	labels := make([]string, 0, len(candidates))
	for _, c := range candidates {
		labels = append(labels, c.Label)
	}

	for {
		idx, err := o.prompt.Select(title, labels)
		if err != nil {
			return nil, err
		}
		cand := candidates[idx]

		if dev.Manual && cand.Chip != chip.Unknown && cand.Chip != dev.Chip {
			useAnyway, err := o.prompt.Confirm(
				"Chip model mismatch",
				fmt.Sprintf("The selected image targets %s but this device was entered as %s.", cand.Chip, dev.Chip),
				"Use it anyway",
				"Choose a different image")
			if err != nil {
				return nil, err
			}
			if !useAnyway {
				continue
			}
		}

		return &cand, nil
	}
}

// overwriteDetails formats the probe result for the confirmation screen,
// including the raw transcript so the user sees what the decision rests on.
func overwriteDetails(res probe.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Detected firmware: %s", res.Type)
	if res.Version != "" {
		fmt.Fprintf(&b, " v%s", res.Version)
	}
	if res.Confidence == probe.Low {
		b.WriteString(" (low confidence)")
	}
	b.WriteString("\nFlashing will erase all programs and data on the device.")
	if raw := strings.TrimSpace(res.Raw); raw != "" {
		b.WriteString("\n\nDevice output:\n")
		b.WriteString(raw)
	}
	return b.String()
}
