// rxmux serves HTTP routes as reactive packet pipelines.
package main

import "github.com/getmockd/rxmux/pkg/cli"

func main() {
	cli.Execute()
}
