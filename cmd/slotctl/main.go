package main

import "fieldslots/internal/cli"

func main() {
	cli.Execute()
}
