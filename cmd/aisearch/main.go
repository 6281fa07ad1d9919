package main

import "github.com/mohammad-safakhou/aisearch/cmd"

func main() {
	cmd.Execute()
}
