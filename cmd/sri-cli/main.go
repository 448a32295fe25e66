// sri-cli emits invoices through the SRI gateway and queries their authorization status.
package main

import "github.com/information-sharing-networks/sri-gateway/internal/cli"

func main() {
	cli.Execute()
}
