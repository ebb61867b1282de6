package main

import "github.com/oshokin/alarm-groups/cmd/alarm-groups/cmd"

func main() {
	cmd.Execute()
}
