package apitables

import (
	"context"
	"log/slog"

	"github.com/fulldump/box"
)

func drop(ctx context.Context) error {

	s := GetServicer(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")

	if err := s.DropTable(tableName); err != nil {
		return err
	}

	slog.Info("table dropped", "table", tableName)
	return nil
}
