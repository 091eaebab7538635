package main

import "yapa-server/cmd"

func main() {
	cmd.Execute()
}
