// Package acpcontract is the single source of truth for the droid CLI's ACP
// interface: command and flag names, stream event types, part content types,
// framing headers and the sentinel lines that may appear in the stream.
//
// When droid changes its wire format (event names, field names, flags) only
// this package should need to change. The droid package and the droid-acp
// command import from here:
//
//	args := []string{acpcontract.CommandExec, acpcontract.FlagOutputFormat, acpcontract.OutputFormatACP}
//
//	if evtType == acpcontract.EventRunCompleted { ... }
//
// TestedCLIVersion records the droid release these constants were checked
// against. CheckVersion logs a warning when the installed CLI is newer.
package acpcontract
