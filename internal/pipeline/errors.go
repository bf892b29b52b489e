package pipeline

import "fmt"

// LoadError means the source workbook or sheet could not be read.
// Nothing has been reported when it is returned.
type LoadError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (sheet %q): %v", e.Path, e.Sheet, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ExportError means the cleaned workbook could not be written. Console
// reporting has already happened when it is returned.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
