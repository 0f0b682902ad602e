package service

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

type JSON = map[string]any

// decodeLines parses a body made of consecutive JSON values.
func decodeLines(body string) []any {
	dec := jsontext.NewDecoder(strings.NewReader(body))
	result := []any{}
	for {
		var v any
		err := json.UnmarshalDecode(dec, &v)
		if errors.Is(err, io.EOF) {
			return result
		}
		if err != nil {
			panic(err)
		}
		result = append(result, v)
	}
}

func Acceptance(a *biff.A, apiRequest func(method, path string) *apitest.Request) {

	usersTable := JSON{
		"name":    "users",
		"pattern": "users##{tenant}##{id}##{attr}",
		"columns": []JSON{
			{"name": "tenant"},
			{"name": "id"},
			{"name": "name"},
			{"name": "age", "type": "integer"},
			{"name": "active", "type": "boolean"},
		},
	}

	expectedTable := JSON{
		"name":    "users",
		"pattern": "users##{tenant}##{id}##{attr}",
		"channel": "public_users_changed",
		"columns": []JSON{
			{"name": "tenant", "type": "text", "role": "identity"},
			{"name": "id", "type": "text", "role": "identity"},
			{"name": "name", "type": "text", "role": "attribute"},
			{"name": "age", "type": "integer", "role": "attribute"},
			{"name": "active", "type": "boolean", "role": "attribute"},
		},
	}

	a.Alternative("Create table", func(a *biff.A) {
		resp := apiRequest("POST", "/tables").
			WithBodyJson(usersTable).Do()
		Save(resp, "Create table", `
			A table maps keys matching a pattern to rows. Captures of the pattern
			are the identity columns, every other column is an attribute stored
			under its own key.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusCreated)
		biff.AssertEqualJson(resp.BodyJson(), expectedTable)

		a.Alternative("Retrieve table", func(a *biff.A) {
			resp := apiRequest("GET", "/tables/users").Do()
			Save(resp, "Retrieve table", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), expectedTable)
		})

		a.Alternative("List tables", func(a *biff.A) {
			resp := apiRequest("GET", "/tables").Do()
			Save(resp, "List tables", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []JSON{expectedTable})
		})

		a.Alternative("Create table twice", func(a *biff.A) {
			resp := apiRequest("POST", "/tables").
				WithBodyJson(usersTable).Do()
			Save(resp, "Create table - already exists", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusConflict)
		})

		a.Alternative("Drop table", func(a *biff.A) {
			resp := apiRequest("POST", "/tables/users:drop").Do()
			Save(resp, "Drop table", `
				Dropping a table forgets its definition, stored keys are kept.
			`)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)

			a.Alternative("Get dropped table", func(a *biff.A) {
				resp := apiRequest("GET", "/tables/users").Do()
				Save(resp, "Retrieve table - not found", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
			})
		})

		a.Alternative("Insert one", func(a *biff.A) {
			resp := apiRequest("POST", "/tables/users:insert").
				WithBodyJson(JSON{
					"tenant": "t1",
					"id":     "u1",
					"name":   "Ann",
					"age":    30,
				}).Do()
			Save(resp, "Insert one", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusCreated)
			biff.AssertEqualJson(resp.BodyJson(), JSON{
				"tenant": "t1",
				"id":     "u1",
				"name":   "Ann",
				"age":    30,
				"active": nil,
			})

			a.Alternative("Keys written", func(a *biff.A) {
				resp := apiRequest("POST", "/keys:list").
					WithBodyJson(JSON{"prefix": "users##"}).Do()
				Save(resp, "List keys", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(decodeLines(resp.BodyString()), []JSON{
					{"key": "users##t1##u1##age", "value": "30"},
					{"key": "users##t1##u1##name", "value": "Ann"},
				})
			})
		})

		a.Alternative("Insert missing identity", func(a *biff.A) {
			resp := apiRequest("POST", "/tables/users:insert").
				WithBodyJson(JSON{"tenant": "t1", "name": "Ann"}).Do()
			Save(resp, "Insert - missing identity", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})

		a.Alternative("Insert unknown column", func(a *biff.A) {
			resp := apiRequest("POST", "/tables/users:insert").
				WithBodyJson(JSON{"tenant": "t1", "id": "u1", "email": "ann@example.com"}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})

		a.Alternative("Insert wrong type", func(a *biff.A) {
			resp := apiRequest("POST", "/tables/users:insert").
				WithBodyJson(JSON{"tenant": "t1", "id": "u1", "age": "thirty"}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})

		a.Alternative("Insert out of range integer", func(a *biff.A) {
			resp := apiRequest("POST", "/tables/users:insert").
				WithBodyJson(JSON{"tenant": "t1", "id": "u1", "age": 2147483648}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})

		a.Alternative("Insert many", func(a *biff.A) {

			users := []JSON{
				{"tenant": "t1", "id": "u1", "name": "Ann", "age": 30, "active": true},
				{"tenant": "t1", "id": "u2", "name": "Bob", "age": 25, "active": false},
				{"tenant": "t2", "id": "u1", "name": "Cid", "age": 41, "active": true},
			}

			body := ""
			for _, user := range users {
				line, _ := json.Marshal(user)
				body += string(line) + "\n"
			}
			resp := apiRequest("POST", "/tables/users:insert").
				WithBodyString(body).Do()
			Save(resp, "Insert many", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusCreated)
			biff.AssertEqualJson(decodeLines(resp.BodyString()), users)

			a.Alternative("Find all", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:find").
					WithBodyJson(JSON{}).Do()
				Save(resp, "Find - full scan", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(decodeLines(resp.BodyString()), users)
			})

			a.Alternative("Find by leading identity", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:find").
					WithBodyJson(JSON{
						"where": JSON{"tenant": "t1"},
					}).Do()
				Save(resp, "Find - where", `
					Equality constraints on the leading identity columns are
					turned into a key range, only keys under
					´users##t1##´ are read.
				`)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(decodeLines(resp.BodyString()), users[0:2])
			})

			a.Alternative("Find by attribute", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:find").
					WithBodyJson(JSON{
						"where": JSON{"age": 41},
					}).Do()

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(decodeLines(resp.BodyString()), users[2:3])
			})

			a.Alternative("Find with filter", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:find").
					WithBodyJson(JSON{
						"filter": JSON{"name": "Bob"},
					}).Do()
				Save(resp, "Find - filter", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(decodeLines(resp.BodyString()), users[1:2])
			})

			a.Alternative("Find with skip and limit", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:find").
					WithBodyJson(JSON{
						"skip":  1,
						"limit": 1,
					}).Do()

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(decodeLines(resp.BodyString()), users[1:2])
			})

			a.Alternative("Find unknown column", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:find").
					WithBodyJson(JSON{
						"where": JSON{"email": "x"},
					}).Do()

				biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
			})

			a.Alternative("Update attribute", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:update").
					WithBodyJson(JSON{
						"where": JSON{"tenant": "t1", "id": "u2"},
						"set":   JSON{"age": 26, "active": nil},
					}).Do()
				Save(resp, "Update", `
					Setting a column to null deletes its key.
				`)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				expected := JSON{"tenant": "t1", "id": "u2", "name": "Bob", "age": 26, "active": nil}
				biff.AssertEqualJson(decodeLines(resp.BodyString()), []JSON{expected})

				resp = apiRequest("POST", "/tables/users:find").
					WithBodyJson(JSON{"where": JSON{"tenant": "t1", "id": "u2"}}).Do()
				biff.AssertEqualJson(decodeLines(resp.BodyString()), []JSON{expected})
			})

			a.Alternative("Update identity", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:update").
					WithBodyJson(JSON{
						"where": JSON{"tenant": "t2", "id": "u1"},
						"set":   JSON{"id": "u9"},
					}).Do()
				Save(resp, "Update - identity", `
					Changing an identity column moves every key of the row.
				`)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)

				resp = apiRequest("POST", "/keys:list").
					WithBodyJson(JSON{"prefix": "users##t2##"}).Do()
				biff.AssertEqualJson(decodeLines(resp.BodyString()), []JSON{
					{"key": "users##t2##u9##active", "value": "t"},
					{"key": "users##t2##u9##age", "value": "41"},
					{"key": "users##t2##u9##name", "value": "Cid"},
				})
			})

			a.Alternative("Remove", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:remove").
					WithBodyJson(JSON{
						"where": JSON{"tenant": "t1"},
					}).Do()
				Save(resp, "Remove", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(decodeLines(resp.BodyString()), users[0:2])

				resp = apiRequest("POST", "/tables/users:find").
					WithBodyJson(JSON{}).Do()
				biff.AssertEqualJson(decodeLines(resp.BodyString()), users[2:3])
			})

			a.Alternative("Discover", func(a *biff.A) {
				resp := apiRequest("POST", "/tables/users:discover").
					WithBodyJson(JSON{}).Do()
				Save(resp, "Discover", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(resp.BodyJson(), JSON{
					"attrs": []JSON{
						{"name": "active", "count": 3, "sample": "t"},
						{"name": "age", "count": 3, "sample": "30"},
						{"name": "name", "count": 3, "sample": "Ann"},
					},
					"keys_scanned": 9,
					"keys_matched": 9,
					"columns": []JSON{
						{"name": "tenant", "type": "text"},
						{"name": "id", "type": "text"},
						{"name": "active", "type": "text"},
						{"name": "age", "type": "text"},
						{"name": "name", "type": "text"},
					},
				})
			})

			a.Alternative("Prefixes", func(a *biff.A) {
				resp := apiRequest("POST", "/keys:prefixes").
					WithBodyJson(JSON{"depth": 2}).Do()
				Save(resp, "List prefixes", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(resp.BodyJson(), []string{"users##t1##", "users##t2##"})
			})

			a.Alternative("Infer pattern", func(a *biff.A) {
				resp := apiRequest("POST", "/keys:infer").
					WithBodyJson(JSON{}).Do()
				Save(resp, "Infer pattern", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqualJson(resp.BodyJson(), JSON{
					"pattern": "users##{col1}##{col2}##{attr}",
				})
			})
		})
	})

	a.Alternative("Create table with invalid pattern", func(a *biff.A) {
		resp := apiRequest("POST", "/tables").
			WithBodyJson(JSON{
				"name":    "broken",
				"pattern": "broken##{id}",
				"columns": []JSON{{"name": "id"}},
			}).Do()
		Save(resp, "Create table - invalid pattern", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
	})

	a.Alternative("Raw keys", func(a *biff.A) {
		resp := apiRequest("POST", "/keys:put").
			WithBodyJson(JSON{"key": "cfg/app/host", "value": "localhost"}).Do()
		Save(resp, "Put key", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)

		a.Alternative("Get key", func(a *biff.A) {
			resp := apiRequest("POST", "/keys:get").
				WithBodyJson(JSON{"key": "cfg/app/host"}).Do()
			Save(resp, "Get key", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"key": "cfg/app/host", "value": "localhost"})
		})

		a.Alternative("Delete key", func(a *biff.A) {
			resp := apiRequest("POST", "/keys:delete").
				WithBodyJson(JSON{"key": "cfg/app/host"}).Do()
			Save(resp, "Delete key", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)

			resp = apiRequest("POST", "/keys:get").
				WithBodyJson(JSON{"key": "cfg/app/host"}).Do()
			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
		})

		a.Alternative("Discover before creating a table", func(a *biff.A) {
			resp := apiRequest("POST", "/keys:discover").
				WithBodyJson(JSON{"pattern": "cfg/{app}/{attr}"}).Do()
			Save(resp, "Discover pattern", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{
				"attrs": []JSON{
					{"name": "host", "count": 1, "sample": "localhost"},
				},
				"keys_scanned": 1,
				"keys_matched": 1,
				"columns": []JSON{
					{"name": "app", "type": "text"},
					{"name": "host", "type": "text"},
				},
			})
		})
	})
}
