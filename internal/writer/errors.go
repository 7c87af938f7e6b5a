package writer

import (
	"errors"
	"fmt"
)

// ErrNotRegular is returned when a final artifact path holds something other than a regular file.
var ErrNotRegular = errors.New("artifact path is not a regular file")

// IOError reports that the partition could not be created or written.
type IOError struct {
	Err  error
	Path string
	Op   string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
