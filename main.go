package main

import (
	"github.com/mj1618/desktop-automation/cmd"

	// Backends register themselves with the platform package.
	_ "github.com/mj1618/desktop-automation/internal/platform/darwin"
	_ "github.com/mj1618/desktop-automation/internal/platform/linux"
	_ "github.com/mj1618/desktop-automation/internal/platform/virtual"
)

func main() {
	cmd.Execute()
}
