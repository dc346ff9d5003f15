// Precession form: an interactive front end for jprecess and bprecess
package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	toB1950 = flag.Bool("b1950", false, "Start in J2000 → B1950 mode")
	epoch   = flag.String("epoch", "", "Initial epoch (empty for the standard epoch)")
)

func main() {
	flag.Parse()

	direction := ToJ2000
	if *toB1950 {
		direction = ToB1950
	}

	app := NewApp(direction, *epoch)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
