package apitables

import (
	"context"
	"net/http"

	"github.com/fulldump/box"
)

type watchRequest struct {
	// Limit closes the stream after that many events, 0 waits until the
	// client goes away.
	Limit int `json:"limit"`
}

func watch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	input := watchRequest{}
	if err := readBody(r, &input); err != nil {
		return err
	}

	s := GetServicer(ctx)
	sub, err := s.Watch(box.GetUrlParameter(ctx, "tableName"))
	if err != nil {
		return err
	}
	defer sub.Close()

	flusher, _ := w.(http.Flusher)
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	for n := 0; input.Limit <= 0 || n < input.Limit; n++ {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := writeLine(w, e); err != nil {
				return err
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}

	return nil
}
