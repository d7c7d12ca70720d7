package main

import (
	"github.com/sda-platform/dronebridge/internal/cmdlets"
)

func main() {
	cmdlets.Entrypoint()
}
