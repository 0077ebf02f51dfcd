package main

import cmd "github.com/chunkytofustudios/analytics-gate/internal/cli"

func main() {
	cmd.Execute()
}
