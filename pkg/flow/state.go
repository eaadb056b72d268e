// Package flow drives one flashing session from device detection through
// post-flash verification. It owns every confirmation and cancellation
// decision; probing, cataloging, flashing, and rendering are collaborators
// behind interfaces.
package flow

// State is a position in the session state machine.
type State string

const (
	StateInit             State = "INIT"
	StateDeviceScan       State = "DEVICE_SCAN"
	StateDeviceConfirmed  State = "DEVICE_CONFIRMED"
	StateFirmwareProbe    State = "FIRMWARE_PROBE"
	StateConfirmOverwrite State = "CONFIRM_OVERWRITE"
	StateFirmwareSelect   State = "FIRMWARE_SELECT"
	StateFlashErase       State = "FLASH_ERASE"
	StateFlashWrite       State = "FLASH_WRITE"
	StateVerify           State = "VERIFY"

	// Terminal states.
	StateDone      State = "DONE"
	StateCancelled State = "CANCELLED"
	StateFailed    State = "FAILED"
)
