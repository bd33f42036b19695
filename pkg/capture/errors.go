// ABOUTME: Capture error types
// ABOUTME: Reports construction and processing failures asynchronously
package capture

import "fmt"

// InitializationError reports that the processor could not be constructed
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("capture initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// ProcessingError reports a recovered fault inside Process
type ProcessingError struct {
	Cause any
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("capture processing fault: %v", e.Cause)
}

// Unwrap returns the cause when the fault was an error value
func (e *ProcessingError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
