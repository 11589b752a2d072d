package main

import "teamwiki/cmd"

func main() {
	cmd.Execute()
}
