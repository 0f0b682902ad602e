package main

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/pivot"
	"github.com/fulldump/pivotdb/store"
)

// TestScan loads an embedded database and compares a full scan against scans
// pinned on one and two identity columns.
func TestScan(c Config) {

	dir, cleanup := TempDir()
	cleanups = append(cleanups, cleanup)

	options := store.DefaultOptions()
	db := database.NewDatabase(&database.Config{Dir: dir, Store: options})
	if err := db.Load(); err != nil {
		fmt.Println("ERROR: load:", err.Error())
		os.Exit(2)
	}
	defer db.Stop()

	table, err := db.CreateTable(usersTable("users"))
	if err != nil {
		fmt.Println("ERROR: create table:", err.Error())
		os.Exit(2)
	}

	fmt.Println("Preload rows...")
	items := c.N
	t0 := time.Now()
	Parallel(c.Workers, func(worker int) {
		for {
			n := atomic.AddInt64(&items, -1)
			if n < 0 {
				return
			}
			err := table.Writer.Insert(pivot.Values{
				"tenant": pivot.SetCell(tenantName(n, c.Tenants)),
				"id":     pivot.SetCell(userID(n)),
				"name":   pivot.SetCell("user " + strconv.FormatInt(n, 10)),
				"n":      pivot.SetCell(strconv.FormatInt(n, 10)),
			})
			if err != nil {
				fmt.Println("ERROR: insert:", err.Error())
				os.Exit(3)
			}
		}
	})
	fmt.Println("preload took:", time.Since(t0))

	run := func(title string, constraints ...pivot.Constraint) {
		plan, err := pivot.PlanScan(table.Projection, constraints)
		if err != nil {
			fmt.Println("ERROR: plan:", err.Error())
			os.Exit(4)
		}

		t0 := time.Now()
		rows := pivot.Scan(db.Store(), table.Projection, plan)
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			fmt.Println("ERROR: scan:", err.Error())
			os.Exit(5)
		}
		rows.Close()
		took := time.Since(t0)

		stats := rows.Stats()
		fmt.Printf("%-12s pinned=%d rows=%d keys=%d took=%s (%.2f keys/sec)\n",
			title, plan.Pinned, stats.RowsReturned, stats.KeysScanned, took,
			float64(stats.KeysScanned)/took.Seconds())
	}

	tenant := tenantName(0, c.Tenants)
	run("full")
	run("tenant", pivot.Constraint{Column: "tenant", Value: tenant})
	run("tenant+id",
		pivot.Constraint{Column: "tenant", Value: tenant},
		pivot.Constraint{Column: "id", Value: userID(0)},
	)
	run("residual", pivot.Constraint{Column: "name", Value: "user 0"})
}
