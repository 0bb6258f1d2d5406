package main

import "github.com/josephlewis42/mumsh/cmd"

func main() {
	cmd.Execute()
}
