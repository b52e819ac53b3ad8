package main

import "github.com/dmaher/pcaptcha/cmd/pcaptcha/cmd"

func main() {
	cmd.Execute()
}
