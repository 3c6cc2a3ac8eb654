package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-client/cmd/authclient/cmd"
)

func main() {
	if len(os.Args) == 1 {
		displayAppname("Auth Client")
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
