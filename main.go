package main

import "github.com/QwerTayu/anniversary-calendar/cmd"

func main() {
	cmd.Run()
}
