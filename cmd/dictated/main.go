// Command dictated hosts the dictation backend as a CLI: serve drives the
// same internal/controller.Controller a GUI shell would bind its IPC
// surface to; the other subcommands call the audio, model, hardware and
// config packages directly.
package main

import "github.com/localcue/dictate/cmd/dictated/cmd"

func main() {
	cmd.Execute()
}
