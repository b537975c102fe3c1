package main

import "github.com/grussorusso/faasrunner/internal/cli"

func main() {
	cli.Init()
}
