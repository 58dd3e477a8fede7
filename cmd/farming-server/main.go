package main

import "github.com/scituinsk/BE-Smart-Farming/cmd/farming-server/cmd"

func main() {
	cmd.Execute()
}
