package main

import "github.com/Mohsinsiddi/ronexport/cmd"

func main() {
	cmd.Execute()
}
