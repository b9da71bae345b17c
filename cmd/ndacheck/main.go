package main

import "github.com/ndacheck/ndacheck/internal/cli"

func main() {
	cli.Execute()
}
