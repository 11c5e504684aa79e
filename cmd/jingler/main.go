package main

import (
	"go.uber.org/fx"

	"github.com/keshon/jingler/internal/app"
)

func main() {
	fx.New(app.CreateApp()).Run()
}
