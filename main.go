// Command agentflow drives an external agent CLI through a gated,
// resumable multi-role delivery pipeline.
package main

import "agentflow/internal/cli"

func main() {
	cli.Execute()
}
