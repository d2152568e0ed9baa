package main

import "github.com/MeKo-Tech/checkcode/cmd/checkcode/cmd"

func main() {
	cmd.Execute()
}
