package main

import "closer-backend/cmd"

func main() {
	cmd.Execute()
}
