package main

import "github.com/KaramelBytes/datapilot-cli/cmd"

func main() {
	cmd.Execute()
}
