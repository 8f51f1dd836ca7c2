package transport

import (
	"context"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

type noRetryKey struct{}

func withoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

func retryDisabled(ctx context.Context) bool {
	disabled, _ := ctx.Value(noRetryKey{}).(bool)
	return disabled
}

func createCustomRetryFunction(logger log.Logger) func(context.Context, *http.Response, error) (bool, error) {
	return func(ctx context.Context, resp *http.Response, doErr error) (bool, error) {
		if retryDisabled(ctx) {
			return false, nil
		}
		retry, err := retryablehttp.DefaultRetryPolicy(ctx, resp, doErr)
		logger.Debugf("CheckRetry: retry=%v ; err=%+v ; doErr=%+v", retry, err, doErr)
		return retry, err
	}
}
