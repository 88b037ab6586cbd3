package main

import (
	"fmt"
	"os"

	"emrSocket/cmd/app"
)

// @title                       EMR realtime API
// @version                     1.0
// @description                 Realtime fan-out and notification API of the hospital EMR.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
