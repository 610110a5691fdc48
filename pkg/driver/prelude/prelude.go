// Package prelude registers every built-in driver provider.
package prelude

import (
	_ "cudasys/pkg/driver/bindgen/cforgo"
	_ "cudasys/pkg/driver/bindgen/cgo"
	_ "cudasys/pkg/driver/exec/native"
)
