package main

import (
	"github.com/narratize/audiobook-engine/internal/bootstrap"
)

func main() {
	bootstrap.Run()
}
