package probe

import "fmt"

// PortBusyError reports that the serial port could not be opened at all,
// typically because another process holds it or permissions are missing.
// It is deliberately distinct from a NoResponse classification: the
// remediation is to free the port, not to treat the chip as blank.
type PortBusyError struct {
	Port string
	Err  error
}

func (e *PortBusyError) Error() string {
	return fmt.Sprintf("cannot open serial port %s (busy or permission denied): %v", e.Port, e.Err)
}

func (e *PortBusyError) Unwrap() error {
	return e.Err
}
