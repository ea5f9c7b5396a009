// Package process runs ffmpeg and ffprobe as child processes.
//
// Start spawns a long-running child and returns a Process:
//   - stdin is kept open so a quit command ("q") can end the recording cleanly
//   - stdout lines go to a callback (ffmpeg -progress output)
//   - stderr is logged line by line with a pluggable LogParser and its tail
//     is retained for error messages
//   - Done/WaitTimeout/Stop observe the exit with explicit timeouts
//
// Run executes a short command (encoder probe, ffprobe) to completion and
// kills it on timeout.
//
// On Linux and Windows children are registered with go-child-process-manager
// so they do not outlive the host process. Recording children also run in
// their own process group, so a terminal Ctrl-C stops only the host, which
// then ends the recording with the quit command.
package process
