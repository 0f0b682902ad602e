// Package apikeys exposes the raw key space under /keys.
package apikeys

import (
	"github.com/fulldump/box"

	"github.com/fulldump/pivotdb/service"
)

func BuildKeys(v1 *box.R, s service.Servicer) *box.R {

	return v1.Resource("/keys").
		WithActions(
			box.ActionPost(getKey(s)).WithName("get"),
			box.ActionPost(putKey(s)).WithName("put"),
			box.ActionPost(deleteKey(s)).WithName("delete"),
			box.ActionPost(listKeys(s)).WithName("list"),
			box.ActionPost(prefixes(s)).WithName("prefixes"),
			box.ActionPost(infer(s)).WithName("infer"),
			box.ActionPost(discover(s)).WithName("discover"),
		)
}
