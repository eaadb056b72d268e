package flow

import (
	"fmt"

	"mpflash/pkg/probe"
)

// VerifyError means erase and write succeeded but the device did not present
// a MicroPython banner within the probe timeout afterwards.
type VerifyError struct {
	Result probe.Result
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("post-flash verification failed: expected MicroPython, device answered with %s", e.Result.Type)
}
