package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "council"}

	root.AddCommand(serveCMD(), migrateCMD(), modelsCMD(), askCMD())
	_ = root.Execute()
}
