package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/newthinker/folio/internal/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// decode reads a JSON body into v. An empty body is an invalid request.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			err = fmt.Errorf("empty body")
		}
		return core.WrapError(core.ErrInvalidRequest, err)
	}
	return nil
}
