// Package providers registers all known agent CLI engines.
// Import this package to make them available via provider.New():
//
//	import _ "github.com/randalmurphal/acpkit/providers"
package providers

import (
	_ "github.com/randalmurphal/acpkit/droid"
)
