package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/linguaai/linguaclient/internal/common"
)

// pgrstNoRows is the table-API error code for "queried a single row, got
// none". Expected during profile backfill, never logged as an error.
const pgrstNoRows = "PGRST116"

// apiError is the provider's error envelope: auth endpoints use
// error_description/msg, the table API uses message/code.
type apiError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Code             string `json:"code"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
}

func (e *apiError) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	default:
		return "unknown error"
	}
}

// mapTransportError folds transport failures into the common taxonomy:
// deadline → ErrTimeout, everything else that never reached the server →
// ErrNetwork.
func mapTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	return fmt.Errorf("%w: %v", common.ErrNetwork, err)
}

// mapStatusError folds a non-2xx provider answer into the taxonomy.
func mapStatusError(status int, e *apiError) error {
	if e != nil && e.Code == pgrstNoRows {
		return common.ErrNotFound
	}
	switch {
	case status == 404 || status == 406:
		return common.ErrNotFound
	case status == 400 || status == 401 || status == 403 || status == 422 || status == 429:
		return fmt.Errorf("%w: %s", common.ErrAuth, e.text())
	default:
		return fmt.Errorf("%w: status %d: %s", common.ErrNetwork, status, e.text())
	}
}
