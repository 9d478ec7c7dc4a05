package main

import "github.com/kiesman99/quadfuse/cmd"

func main() {
	cmd.Execute()
}
