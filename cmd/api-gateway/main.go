package main

import "github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/services/api-gateway/cli"

func main() {
	cli.Execute()
}
