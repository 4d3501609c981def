package main

import "github.com/jmehdipour/washcorner-notify/cmd"

func main() {
	cmd.Execute()
}
