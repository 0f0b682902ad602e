package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/fulldump/pivotdb/bootstrap"
	"github.com/fulldump/pivotdb/configuration"
	"github.com/fulldump/pivotdb/database"
)

type JSON = map[string]any

func Parallel(workers int, f func(worker int)) {
	wg := &sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(i)
		}()
	}
	wg.Wait()
}

func TempDir() (string, func()) {
	dir, err := os.MkdirTemp("", "pivotdb_bench_*")
	if err != nil {
		panic("Could not create temp directory: " + err.Error())
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

func usersTable(name string) database.TableDefinition {
	return database.TableDefinition{
		Name:    name,
		Pattern: name + "##{tenant}##{id}##{attr}",
		Columns: []database.ColumnDefinition{
			{Name: "tenant"},
			{Name: "id"},
			{Name: "name"},
			{Name: "n", Type: "bigint"},
		},
	}
}

func CreateTable(base string) string {

	name := "users" + strconv.FormatInt(time.Now().UnixNano(), 10)

	payload, _ := json.Marshal(usersTable(name))

	req, _ := http.NewRequest("POST", base+"/v1/tables", bytes.NewReader(payload))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	io.Copy(os.Stdout, resp.Body)

	return name
}

func CreateServer(c *Config) (start, stop func()) {
	dir, cleanup := TempDir()
	cleanups = append(cleanups, cleanup)

	conf := configuration.Default()
	conf.Dir = dir
	conf.SyncIntervalMs = 1000
	c.Base = "http://" + conf.HttpAddr

	start, stop, err := bootstrap.Bootstrap(&conf)
	if err != nil {
		fmt.Println("ERROR: bootstrap:", err.Error())
		os.Exit(2)
	}
	return start, stop
}

func tenantName(i, tenants int64) string {
	return fmt.Sprintf("t%04d", i%tenants)
}

func userID(i int64) string {
	return fmt.Sprintf("u%09d", i)
}
