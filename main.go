package main

import "github.com/timvw/pane-runner/cmd"

func main() {
	cmd.Execute()
}
