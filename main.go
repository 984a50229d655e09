package main

import "github.com/kamusis/tooldeck/cmd"

func main() {
	cmd.Execute()
}
