// Package trace adds request lifecycle hooks on top of the low level httptrace.ClientTrace.
// A trace is registered in the client.Client by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"
	"time"

	"github.com/eiadata/go-client/pkg/request"
)

// Factory creates the ClientTrace hooks for one request.
// The factory may return a modified context.
// A nil trace registers no hooks.
type Factory func(ctx context.Context, request request.HTTPRequest) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks run at the stages of an outgoing request.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the request begins. It includes redirects and retries.
	HTTPRequestStart func(request *http.Request)
	// HTTPRequestDone is called when the request completes. It includes redirects and retries.
	HTTPRequestDone func(response *http.Response, err error)
	// HTTPRequestRetry is called before the retry delay.
	HTTPRequestRetry func(attempt int, delay time.Duration)
	// RequestProcessed is called when the Client.Send method is done.
	RequestProcessed func(result any, err error)
}

// Compose chains the hooks of the old trace before the hooks of t,
// the same way httptrace composes the native hooks.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	target := reflect.ValueOf(t).Elem()
	source := reflect.ValueOf(old).Elem()
	for i := 0; i < target.NumField(); i++ {
		hook := target.Field(i)
		if hook.Type().Kind() != reflect.Func {
			continue
		}
		oldHook := source.Field(i)
		if oldHook.IsNil() {
			continue
		}
		if hook.IsNil() {
			hook.Set(oldHook)
			continue
		}

		// The original hook value must be captured before Set,
		// otherwise the composed function would call itself
		origHook := reflect.ValueOf(hook.Interface())
		hook.Set(reflect.MakeFunc(hook.Type(), func(args []reflect.Value) []reflect.Value {
			oldHook.Call(args)
			return origHook.Call(args)
		}))
	}
}
