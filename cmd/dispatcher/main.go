package main

import "github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/services/dispatcher/cli"

func main() {
	cli.Execute()
}
