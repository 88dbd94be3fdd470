// Package memzero wipes transient key buffers once they are no longer needed.
package memzero

import "runtime"

// Zero overwrites b with zeros. KeepAlive stops the compiler from treating
// the stores as dead when b is not read again.
func Zero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
