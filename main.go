/*
Copyright © 2024 Jake Rogers <code@supportoss.org>
*/
package main

import "github.com/JakeTRogers/geoBuddy/cmd"

func main() {
	cmd.Execute()
}
