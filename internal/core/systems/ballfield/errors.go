package ballfield

import "errors"

var ErrUnknownBody = errors.New("unknown body")
