package main

import "papertalk/internal/cli"

func main() {
	cli.Execute()
}
