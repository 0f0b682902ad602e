package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/fulldump/goconfig"
)

type Config struct {
	Test    string `usage:"name of the test: ALL | INSERT | SCAN"`
	Base    string `usage:"base URL"`
	N       int64  `usage:"number of rows"`
	Tenants int64  `usage:"number of distinct tenants"`
	Workers int    `usage:"number of workers"`
}

var cleanups []func()

func main() {

	defer func() {
		fmt.Println("Cleaning up...")
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	c := Config{
		Test:    "scan",
		Base:    "",
		N:       1_000_000,
		Tenants: 100,
		Workers: 16,
	}
	goconfig.Read(&c)

	if c.Tenants <= 0 {
		c.Tenants = 1
	}

	switch strings.ToUpper(c.Test) {
	case "ALL":
		TestInsert(c)
		TestScan(c)
	case "INSERT":
		TestInsert(c)
	case "SCAN":
		TestScan(c)
	default:
		log.Fatalf("Unknown test %s", c.Test)
	}

}
