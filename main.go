package main

import "ballot-backend/cli"

func main() {
	cli.Execute()
}
