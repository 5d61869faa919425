// Package action runs state-changing backend commands for irriboard.
//
// This package is internal to irriboard and owns the command guard and retry
// policy:
//
//   - [Invoker]: runs one command at a time behind a process-wide busy flag
//   - transport failures retry up to 3 attempts with a linearly increasing
//     delay; backend rejections and malformed replies are definitive
//
// The poll guard in internal/poller and the command guard here are
// independent: a poll may run while a command is pending. Only same-kind
// overlap is prevented.
package action
