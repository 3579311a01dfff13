package main

import "browseq/cmd"

func main() {
	cmd.Execute()
}
