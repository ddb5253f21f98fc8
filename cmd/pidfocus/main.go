package main

import "github.com/bryanchriswhite/pidfocus/cmd/pidfocus/commands"

func main() {
	commands.Execute()
}
