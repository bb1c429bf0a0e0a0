package main

import "github.com/theirongolddev/finassist/cmd"

func main() {
	cmd.Execute()
}
