package fmtt

import "github.com/davecgh/go-spew/spew"

// compact is tuned for log fields: stable key order, no pointer
// addresses, no capacities.
var compact = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// SdumpCompact renders values for structured log fields. Equal values
// always render to equal strings.
func SdumpCompact(v ...any) string {
	return compact.Sdump(v...)
}
