package main

import "github.com/mvp-joe/smurffctl/internal/cli"

func main() {
	cli.Execute()
}
