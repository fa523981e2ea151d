package main

import "github.com/sellsutra/ms-go-orders/cmd"

func main() {
	cmd.Execute()
}
