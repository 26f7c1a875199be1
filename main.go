package main

import "thoreinstein.com/intake/cmd"

func main() {
	cmd.Execute()
}
