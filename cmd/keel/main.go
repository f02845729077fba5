package main

import "github.com/keel-orm/keel/cmd/keel/commands"

func main() {
	commands.Execute()
}
