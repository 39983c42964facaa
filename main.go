package main

import "archivelinker/cmd"

func main() {
	cmd.Execute()
}
