package main

import "github.com/driftbot/driftbot/cmd"

func main() {
	cmd.Execute()
}
