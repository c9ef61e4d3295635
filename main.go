package main

import "github.com/KaramelBytes/autostat/cmd"

func main() {
	cmd.Execute()
}
