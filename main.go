/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/dreamhome/planner/cmd"

func main() {
	cmd.Execute()
}
