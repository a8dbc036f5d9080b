package main

import "github.com/Marenz/spacebot-dash/cmd"

func main() {
	cmd.Execute()
}
