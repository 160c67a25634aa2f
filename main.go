package main

import "mirdata/cmd"

func main() {
	cmd.Execute()
}
