package main

import "schedule-service/internal/cli"

func main() {
	cli.Execute()
}
