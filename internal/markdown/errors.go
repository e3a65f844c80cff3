package markdown

import "errors"

var errRendererPanic = errors.New("markdown renderer panicked")
