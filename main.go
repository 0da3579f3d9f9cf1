package main

import "tablekv/cmd"

func main() {
	cmd.Execute()
}
