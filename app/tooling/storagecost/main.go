package main

import "github.com/ardanlabs/storagecost/app/tooling/storagecost/cmd"

func main() {
	cmd.Execute()
}
