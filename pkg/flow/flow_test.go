package flow

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpflash/pkg/chip"
	"mpflash/pkg/device"
	"mpflash/pkg/firmware"
	"mpflash/pkg/flash"
	"mpflash/pkg/probe"
	"mpflash/pkg/serialport"
	"mpflash/pkg/ui"
)

type fakeLister struct {
	ports []serialport.Port
	err   error
}

func (f fakeLister) List() ([]serialport.Port, error) { return f.ports, f.err }

type selectResp struct {
	idx int
	err error
}

type confirmResp struct {
	ok  bool
	err error
}

type inputResp struct {
	text string
	err  error
}

// fakePrompter replays scripted answers and records every question asked.
type fakePrompter struct {
	selects  []selectResp
	confirms []confirmResp
	inputs   []inputResp

	selectTitles  []string
	selectOptions [][]string
	confirmTitles []string
}

func (p *fakePrompter) Select(title string, options []string) (int, error) {
	p.selectTitles = append(p.selectTitles, title)
	p.selectOptions = append(p.selectOptions, options)
	if len(p.selects) == 0 {
		return 0, nil
	}
	r := p.selects[0]
	p.selects = p.selects[1:]
	return r.idx, r.err
}

func (p *fakePrompter) Confirm(title, _ string, _, _ string) (bool, error) {
	p.confirmTitles = append(p.confirmTitles, title)
	if len(p.confirms) == 0 {
		return true, nil
	}
	r := p.confirms[0]
	p.confirms = p.confirms[1:]
	return r.ok, r.err
}

func (p *fakePrompter) Input(_, _ string) (string, error) {
	if len(p.inputs) == 0 {
		return "", nil
	}
	r := p.inputs[0]
	p.inputs = p.inputs[1:]
	return r.text, r.err
}

type probeResp struct {
	res probe.Result
	err error
}

type fakeProber struct {
	responses []probeResp
	calls     int
}

func (f *fakeProber) Probe(context.Context, string) (probe.Result, error) {
	f.calls++
	if len(f.responses) == 0 {
		return probe.Result{Type: probe.NoResponse}, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.res, r.err
}

type fakeCatalog struct {
	candidates []firmware.Candidate
	degraded   bool
	err        error

	materializeErr error
	materialized   *firmware.Candidate
}

func (f *fakeCatalog) Candidates(_ context.Context, _ chip.Model) ([]firmware.Candidate, bool, error) {
	return f.candidates, f.degraded, f.err
}

func (f *fakeCatalog) Materialize(_ context.Context, c firmware.Candidate) (string, error) {
	if f.materializeErr != nil {
		return "", f.materializeErr
	}
	f.materialized = &c
	return "/tmp/fw.bin", nil
}

type fakeFlasher struct {
	eraseErr      error
	writeAttempts []flash.Attempt
	writeErr      error

	eraseCalls int
	writeCalls int
}

func (f *fakeFlasher) Erase(_ context.Context, dev device.Device) error {
	f.eraseCalls++
	if !dev.Confirmed() {
		return errors.New("unconfirmed device reached the flasher")
	}
	return f.eraseErr
}

func (f *fakeFlasher) Write(_ context.Context, _ device.Device, _ string) ([]flash.Attempt, error) {
	f.writeCalls++
	return f.writeAttempts, f.writeErr
}

func usbPort() serialport.Port {
	return serialport.Port{Name: "/dev/ttyUSB0", Guess: chip.ESP32C3, LikelyESP32: true}
}

func remoteCandidate() firmware.Candidate {
	return firmware.Candidate{
		Origin: firmware.Remote,
		Label:  "v1.26.1 (Latest Stable)",
		Source: "https://example.org/fw.bin",
		Chip:   chip.ESP32C3,
	}
}

func micropythonResult() probe.Result {
	return probe.Result{
		Raw:        "MicroPython v1.26.1 on 2025-09-11; ESP32C3 module with esp32c3",
		Type:       probe.MicroPython,
		Version:    "1.26.1",
		Confidence: probe.High,
	}
}

func TestRunHappyPathWithOverwriteConfirm(t *testing.T) {
	prompt := &fakePrompter{}
	prober := &fakeProber{responses: []probeResp{
		{res: micropythonResult()},
		{res: micropythonResult()}, // post-flash verification
	}}
	flasher := &fakeFlasher{writeAttempts: []flash.Attempt{
		{BaudRate: 460800, Outcome: flash.Success, Index: 1},
	}}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		prober,
		&fakeCatalog{candidates: []firmware.Candidate{remoteCandidate()}},
		flasher,
		prompt,
	)

	session, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flash.Completed, session.Status)
	assert.Equal(t, StateDone, o.State())

	// Recognized firmware must have triggered the overwrite confirmation.
	require.Contains(t, prompt.confirmTitles, "Overwrite current firmware?")
	assert.Equal(t, 1, flasher.eraseCalls)
	assert.Equal(t, 1, flasher.writeCalls)
	assert.Equal(t, 2, prober.calls, "probe once before, once after flashing")
	require.Len(t, session.Attempts, 1)
	assert.Equal(t, "/dev/ttyUSB0", session.Device.Port)
	assert.True(t, session.Device.Confirmed())
}

func TestRunDeclinedOverwriteCancelsUntouched(t *testing.T) {
	prompt := &fakePrompter{confirms: []confirmResp{{ok: false}}}
	flasher := &fakeFlasher{}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		&fakeProber{responses: []probeResp{{res: micropythonResult()}}},
		&fakeCatalog{candidates: []firmware.Candidate{remoteCandidate()}},
		flasher,
		prompt,
	)

	session, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flash.Cancelled, session.Status)
	assert.Equal(t, StateCancelled, o.State())
	assert.Zero(t, flasher.eraseCalls, "a declined overwrite must leave the device untouched")
	assert.Zero(t, flasher.writeCalls)
}

func TestRunNoResponseSkipsConfirmation(t *testing.T) {
	prompt := &fakePrompter{}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		&fakeProber{responses: []probeResp{
			{res: probe.Result{Type: probe.NoResponse}},
			{res: micropythonResult()},
		}},
		&fakeCatalog{candidates: []firmware.Candidate{remoteCandidate()}},
		&fakeFlasher{writeAttempts: []flash.Attempt{{BaudRate: 460800, Outcome: flash.Success, Index: 1}}},
		prompt,
	)

	session, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flash.Completed, session.Status)
	assert.NotContains(t, prompt.confirmTitles, "Overwrite current firmware?",
		"a silent device has nothing to overwrite, so no confirmation")
}

func TestRunNoCandidatesFailsBeforeFlashing(t *testing.T) {
	flasher := &fakeFlasher{}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		&fakeProber{responses: []probeResp{{res: probe.Result{Type: probe.NoResponse}}}},
		&fakeCatalog{degraded: true, err: firmware.ErrNoCandidates},
		flasher,
		&fakePrompter{},
	)

	session, err := o.Run(context.Background())
	require.ErrorIs(t, err, firmware.ErrNoCandidates)
	assert.Equal(t, flash.Failed, session.Status)
	assert.Equal(t, StateFailed, o.State())
	assert.Zero(t, flasher.eraseCalls)
}

func TestRunManualEntryWhenNothingEnumerated(t *testing.T) {
	prompt := &fakePrompter{
		inputs:  []inputResp{{text: "/dev/tty.usbmodem114301"}},
		selects: []selectResp{{idx: 1}}, // chip menu: ESP32-C3
	}
	o := New(
		fakeLister{}, // zero devices
		&fakeProber{responses: []probeResp{
			{res: probe.Result{Type: probe.NoResponse}},
			{res: micropythonResult()},
		}},
		&fakeCatalog{candidates: []firmware.Candidate{remoteCandidate()}},
		&fakeFlasher{writeAttempts: []flash.Attempt{{BaudRate: 460800, Outcome: flash.Success, Index: 1}}},
		prompt,
	)

	session, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flash.Completed, session.Status)
	assert.Equal(t, "/dev/tty.usbmodem114301", session.Device.Port)
	assert.Equal(t, chip.ESP32C3, session.Device.Chip)
	assert.True(t, session.Device.Manual)
}

func TestRunPortBusyRetries(t *testing.T) {
	prompt := &fakePrompter{confirms: []confirmResp{
		{ok: true}, // retry after freeing the port
		{ok: true}, // overwrite confirmation
	}}
	prober := &fakeProber{responses: []probeResp{
		{err: &probe.PortBusyError{Port: "/dev/ttyUSB0", Err: errors.New("resource busy")}},
		{res: micropythonResult()},
		{res: micropythonResult()},
	}}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		prober,
		&fakeCatalog{candidates: []firmware.Candidate{remoteCandidate()}},
		&fakeFlasher{writeAttempts: []flash.Attempt{{BaudRate: 460800, Outcome: flash.Success, Index: 1}}},
		prompt,
	)

	session, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flash.Completed, session.Status)
	require.Contains(t, prompt.confirmTitles, "Serial port busy")
	assert.Equal(t, 3, prober.calls)
}

func TestRunPortBusyAbortCancels(t *testing.T) {
	prompt := &fakePrompter{confirms: []confirmResp{{ok: false}}}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		&fakeProber{responses: []probeResp{
			{err: &probe.PortBusyError{Port: "/dev/ttyUSB0", Err: errors.New("resource busy")}},
		}},
		&fakeCatalog{},
		&fakeFlasher{},
		prompt,
	)

	session, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flash.Cancelled, session.Status)
}

func TestRunEraseFailureIsFatal(t *testing.T) {
	flasher := &fakeFlasher{eraseErr: &flash.EraseError{Output: "MD5 mismatch", Err: errors.New("exit status 2")}}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		&fakeProber{responses: []probeResp{{res: probe.Result{Type: probe.NoResponse}}}},
		&fakeCatalog{candidates: []firmware.Candidate{remoteCandidate()}},
		flasher,
		&fakePrompter{},
	)

	session, err := o.Run(context.Background())
	var eraseErr *flash.EraseError
	require.ErrorAs(t, err, &eraseErr)
	assert.Equal(t, flash.Failed, session.Status)
	assert.Zero(t, flasher.writeCalls, "an erase failure must never lead to a write")
}

func TestRunVerifyFailure(t *testing.T) {
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		&fakeProber{responses: []probeResp{
			{res: probe.Result{Type: probe.NoResponse}},
			{res: probe.Result{Type: probe.NoResponse}}, // device stays silent after flashing
		}},
		&fakeCatalog{candidates: []firmware.Candidate{remoteCandidate()}},
		&fakeFlasher{writeAttempts: []flash.Attempt{{BaudRate: 460800, Outcome: flash.Success, Index: 1}}},
		&fakePrompter{},
	)

	session, err := o.Run(context.Background())
	var verifyErr *VerifyError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, flash.Failed, session.Status)
	require.Len(t, session.Attempts, 1, "attempt history survives a failed verification")
}

func TestRunWriteErrorCarriesAttemptHistory(t *testing.T) {
	attempts := []flash.Attempt{
		{BaudRate: 460800, Outcome: flash.Timeout, Index: 1},
		{BaudRate: 115200, Outcome: flash.Timeout, Index: 2},
	}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		&fakeProber{responses: []probeResp{{res: probe.Result{Type: probe.NoResponse}}}},
		&fakeCatalog{candidates: []firmware.Candidate{remoteCandidate()}},
		&fakeFlasher{
			writeAttempts: attempts,
			writeErr:      &flash.WriteError{Outcome: flash.Timeout, Err: errors.New("exit status 2")},
		},
		&fakePrompter{},
	)

	session, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, flash.Failed, session.Status)
	assert.Equal(t, attempts, session.Attempts)
}

func TestRunQuitAtDeviceMenuCancels(t *testing.T) {
	prompt := &fakePrompter{selects: []selectResp{{err: ui.ErrCancelled}}}
	o := New(
		fakeLister{ports: []serialport.Port{usbPort()}},
		&fakeProber{},
		&fakeCatalog{},
		&fakeFlasher{},
		prompt,
	)

	session, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flash.Cancelled, session.Status)
	assert.Equal(t, StateCancelled, o.State())
}

func TestSelectFirmwareChipMismatchReported(t *testing.T) {
	wrongChip := firmware.Candidate{
		Origin: firmware.Remote,
		Label:  "v1.26.1 for ESP32-S3",
		Source: "https://example.org/s3.bin",
		Chip:   chip.ESP32S3,
	}
	local := firmware.Candidate{
		Origin: firmware.Local,
		Label:  "rescue.bin (local file)",
		Source: "/work/rescue.bin",
		Chip:   chip.Unknown,
	}
	prompt := &fakePrompter{
		selects:  []selectResp{{idx: 0}, {idx: 1}},
		confirms: []confirmResp{{ok: false}}, // decline the mismatched image
	}
	o := New(fakeLister{}, &fakeProber{}, &fakeCatalog{candidates: []firmware.Candidate{wrongChip, local}}, &fakeFlasher{}, prompt)

	dev := device.Device{Port: "/dev/ttyUSB0", Chip: chip.ESP32C3, Manual: true}
	got, err := o.selectFirmware(context.Background(), dev)
	require.NoError(t, err)

	require.Contains(t, prompt.confirmTitles, "Chip model mismatch")
	assert.Equal(t, local, *got, "declining the mismatch returns to selection")
}

func TestSelectFirmwareUnknownChipLocalFileNotFlagged(t *testing.T) {
	local := firmware.Candidate{
		Origin: firmware.Local,
		Label:  "rescue.bin (local file)",
		Source: "/work/rescue.bin",
		Chip:   chip.Unknown,
	}
	prompt := &fakePrompter{selects: []selectResp{{idx: 0}}}
	o := New(fakeLister{}, &fakeProber{}, &fakeCatalog{candidates: []firmware.Candidate{local}}, &fakeFlasher{}, prompt)

	dev := device.Device{Port: "COM3", Chip: chip.ESP32, Manual: true}
	_, err := o.selectFirmware(context.Background(), dev)
	require.NoError(t, err)
	assert.Empty(t, prompt.confirmTitles, "untyped local files cannot mismatch")
}
