// Command resthookd serves the resthook subscription API and delivers
// raw events fired over HTTP.
package main

import (
	"os"

	"github.com/xraph/resthook/cmd/resthookd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
