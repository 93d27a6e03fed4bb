package main

import (
	"github.com/oshokin/alarm-controller/cmd/alarm-controller/cmd"
)

func main() {
	cmd.Execute()
}
