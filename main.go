package main

import "library-lending/cli"

func main() {
	cli.Execute()
}
