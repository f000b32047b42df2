// Command houseprice trains and serves the house price model.
package main

import (
	"context"
	"os"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
