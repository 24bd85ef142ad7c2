package mqtt

import "errors"

// ErrNotConnected is returned when a publish is attempted before Connect or
// after Disconnect.
var ErrNotConnected = errors.New("mqtt client not connected")
