package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fulldump/goconfig"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/fulldump/pivotdb/bootstrap"
	"github.com/fulldump/pivotdb/configuration"
)

var banner = `
 ____  _            _   ____  ____
|  _ \(_)_   _____ | |_|  _ \| __ )
| |_) | \ \ / / _ \| __| | | |  _ \
|  __/| |\ V / (_) | |_| |_| | |_) |
|_|   |_| \_/ \___/ \__|____/|____/
                 version ` + bootstrap.VERSION + `
`

func main() {

	c := configuration.Default()
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", bootstrap.VERSION)
		return
	}

	if c.ShowBanner {
		fmt.Println(banner)
	}

	if c.ShowConfig {
		json.MarshalWrite(os.Stdout, c, jsontext.WithIndent("    "))
		fmt.Println()
	}

	if _, err := bootstrap.SetupLogger(c.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err.Error())
		os.Exit(2)
	}

	start, _, err := bootstrap.Bootstrap(&c)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(-1)
	}

	start()
}
