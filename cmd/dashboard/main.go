package main

import (
	"os"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/app"
)

func main() {
	os.Exit(app.Run("dashboard", run))
}
