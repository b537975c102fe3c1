package invoker

import (
	"net/http"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/utils"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// HTTPInvoker POSTs the payload to the function URL and waits for the answer.
type HTTPInvoker struct {
	Url    string
	Client *http.Client
}

func (h *HTTPInvoker) Invoke(ctx context.Context, payload experiment.Payload) (string, float64, error) {
	body, err := encodePayload(payload)
	if err != nil {
		return "", 0, err
	}
	return measure(func() (string, error) {
		resp, err := utils.PostJson(ctx, h.Client, h.Url, []byte(body))
		if resp == nil {
			return "", errors.Wrapf(err, "POST %s", h.Url)
		}
		text, readErr := utils.ReadBody(resp.Body)
		if err != nil {
			return text, errors.Wrapf(err, "POST %s", h.Url)
		}
		if readErr != nil {
			return "", errors.Wrap(readErr, "could not read response")
		}
		return text, nil
	})
}
