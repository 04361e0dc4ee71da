// Command stormq is the operator CLI for the storm report query service. It
// runs ad-hoc GraphQL queries through the query console and prints the same
// filtered stats and hourly timeline the dashboard shows for a date.
//
// Usage:
//
//	stormq run --query-file reports.graphql
//	stormq summary --date 2024-04-26 --type tornado --state IA
//	stormq verify --date 2024-04-26 --expect-total 271
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
