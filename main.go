package main

import "github.com/iksnae/agentlog-viewer/cmd"

func main() {
	cmd.Execute()
}
