package main

import "github.com/notargets/matderiv/cmd"

func main() {
	cmd.Execute()
}
