// Command assigner manages course homework repositories and the class
// roster stored in the assigner configuration.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/yacchi/assigner/internal/cmd"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cmd.NewApp(version).Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
