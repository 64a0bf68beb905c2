// Command fedharvest extracts and normalizes the metadata of a Fedora 3
// repository into a record database.
package main

import (
	"log"
)

func main() {
	if err := Execute(); err != nil {
		log.Fatal(err)
	}
}
