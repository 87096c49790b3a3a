package oxidb

import (
	"errors"
	"fmt"
)

// Error is an error reply from the server.
type Error struct {
	Msg      string
	NotFound bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("oxidb: %s", e.Msg)
}

// IsNotFound reports whether err is a server "not found" reply.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.NotFound
}
