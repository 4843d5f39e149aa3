package main

import "github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/cmd"

func main() {
	cmd.Execute()
}
