package eventstream

import "errors"

// ErrNilCompactionEvent indicates a nil compaction event payload was provided to a publisher.
var ErrNilCompactionEvent = errors.New("nil compaction event")
