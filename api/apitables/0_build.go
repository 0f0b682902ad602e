package apitables

import (
	"github.com/fulldump/box"

	"github.com/fulldump/pivotdb/service"
)

func BuildTables(v1 *box.R, s service.Servicer) *box.R {

	tables := v1.Resource("/tables").
		WithActions(
			box.Get(listTables),
			box.Post(createTable),
		)

	v1.Resource("/tables/{tableName}").
		WithActions(
			box.Get(getTable),
			box.ActionPost(find),
			box.ActionPost(insert),
			box.ActionPost(update),
			box.ActionPost(remove),
			box.ActionPost(drop),
			box.ActionPost(discover),
			box.ActionPost(watch),
		)

	return tables
}
