package rate

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable wraps counter backend failures.
var ErrStoreUnavailable = errors.New("rate counter store unavailable")

// ErrStoreFull is returned by MemoryStore when every slot holds an open window.
var ErrStoreFull = fmt.Errorf("%w: counter capacity reached", ErrStoreUnavailable)
