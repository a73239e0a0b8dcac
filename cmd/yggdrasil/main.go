package main

import "go.minekube.com/yggdrasil/pkg/cmd/yggdrasil"

func main() {
	yggdrasil.Execute()
}
