package main

import (
	"os"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/app"
)

func main() {
	os.Exit(app.Run())
}
