package main

import "github.com/KaramelBytes/mswreport-cli/cmd"

func main() {
	cmd.Execute()
}
