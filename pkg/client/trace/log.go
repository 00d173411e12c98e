package trace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"

	"github.com/eiadata/go-client/pkg/request"
)

// LogTracer writes one short line for each stage of an outgoing request.
// The requests of one client share a numeric sequence, so the lines of
// concurrent requests can be told apart.
func LogTracer(wr io.Writer) Factory {
	var sequence uint64
	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *ClientTrace) {
		l := &logTracer{wr: wr, id: atomic.AddUint64(&sequence, 1)}
		t := &ClientTrace{}
		t.ConnectStart = func(network, addr string) {
			l.connStartTime = time.Now()
		}
		t.GotConn = func(info httptrace.GotConnInfo) {
			l.gotConn(info)
		}
		t.HTTPRequestStart = func(r *http.Request) {
			l.req = r
			l.startTime = time.Now()
			l.logf(`START %s "%s"`, r.Method, r.URL)
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			l.doneTime = time.Now()
			if err == nil {
				l.statusCode = r.StatusCode
			}
			l.logf(`DONE  %s "%s" | %d | %s%s`, l.req.Method, l.req.URL, l.statusCode, l.doneTime.Sub(l.startTime), errSuffix(err))
		}
		t.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			l.logf(`RETRY %s "%s" | %dx | %s`, l.req.Method, l.req.URL, attempt, delay)
		}
		t.RequestProcessed = func(result any, err error) {
			l.logf(`BODY  %s "%s" | %s%s`, l.req.Method, l.req.URL, time.Since(l.doneTime), errSuffix(err))
		}
		return ctx, t
	}
}

type logTracer struct {
	wr            io.Writer
	id            uint64
	req           *http.Request
	statusCode    int
	connStartTime time.Time
	startTime     time.Time
	doneTime      time.Time
}

func (l *logTracer) gotConn(info httptrace.GotConnInfo) {
	var state string
	switch {
	case info.Reused && info.WasIdle:
		state = fmt.Sprintf("reused conn (was idle=%s)", info.IdleTime)
	case info.Reused:
		state = "reused conn"
	default:
		state = fmt.Sprintf("new conn | %s", time.Since(l.connStartTime))
	}
	l.logf(`CONN  %s "%s" | %s`, l.req.Method, l.req.URL, state)
}

func (l *logTracer) logf(format string, a ...any) {
	_, _ = fmt.Fprintf(l.wr, "HTTP_REQUEST[%04d] "+format+"\n", append([]any{l.id}, a...)...)
}

func errSuffix(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf(" | error=%s", err)
}
