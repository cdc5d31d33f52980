package main

import "github.com/nsxzhou1114/lms-forum-api/cmd"

func main() {
	cmd.Execute()
}
