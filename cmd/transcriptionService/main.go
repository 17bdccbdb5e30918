package main

import (
	"github.com/labstack/gommon/color"

	"github.com/scribeline/scribeline/internal/app/transcription"
)

func main() {
	printBanner()
	transcription.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
                 _ __        ___
   _____________(_) /_  ___ / (_)___  ___
  / ___/ ___/ __/ / __ \/ _ \ / / __ \/ _ \
 (__  ) /__/ /  / / /_/ /  __/ / / / /  __/
/____/\___/_/  /_/_.___/\___/_/_/_/ /\___/  v: %s

  transcription
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("github.com/scribeline/scribeline"))
}
