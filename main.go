package main

import "github.com/Tiliavir/personal-assistant/cmd"

func main() {
	cmd.Execute()
}
