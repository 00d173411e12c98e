package trace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/eiadata/go-client/pkg/client/decode"
	"github.com/eiadata/go-client/pkg/request"
)

const dumpTraceMaxLength = 2000

// DumpTracer writes the full dump of each request and response to the writer.
// The dump contains the unmasked API key, it is meant for local debugging only.
func DumpTracer(wr io.Writer) Factory {
	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *ClientTrace) {
		d := &dumpTracer{wr: wr}
		t := &ClientTrace{}
		t.HTTPRequestStart = func(r *http.Request) {
			d.startTime = time.Now()
			d.method = r.Method
			d.uri = r.URL.RequestURI()
			d.requestDump, _ = httputil.DumpRequestOut(r, true)
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			d.requestDone(r, err)
		}
		t.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			d.writeln("")
			d.writeln(fmt.Sprintf(">>>>>> HTTP RETRY | ATTEMPT: %d | DELAY: %s | %s %s %d | ERROR: %v", attempt, delay, d.method, d.uri, d.statusCode, d.err))
		}
		t.RequestProcessed = func(result any, err error) {
			d.writeln("")
			d.writeln(fmt.Sprintf(
				">>>>>> HTTP REQUEST PROCESSED | %s %s %d | ERROR: %v | HEADERS AT: %s | DONE AT: %s",
				d.method, d.uri, d.statusCode, d.err, d.headersTime.Sub(d.startTime), time.Since(d.startTime),
			))
		}
		return ctx, t
	}
}

type dumpTracer struct {
	wr          io.Writer
	method      string
	uri         string
	statusCode  int
	err         error
	requestDump []byte
	startTime   time.Time
	headersTime time.Time
}

func (d *dumpTracer) requestDone(r *http.Response, err error) {
	if r != nil {
		d.statusCode = r.StatusCode
		d.headersTime = time.Now()
	}
	if err != nil {
		d.err = err
	}

	d.writeln("")
	d.writeln(">>>>>> HTTP DUMP")
	d.writeBody(string(d.requestDump))
	d.writeln("------")
	if err != nil {
		d.writeln(fmt.Sprintf("ERROR: %v", err))
	} else {
		d.writeResponse(r)
	}
	d.writeln("<<<<<< HTTP DUMP END")
}

func (d *dumpTracer) writeResponse(r *http.Response) {
	if v, err := httputil.DumpResponse(r, false); err == nil {
		d.writeln(strings.TrimSpace(string(v)))
	} else {
		d.writeln(fmt.Sprintf("cannot dump response headers: %v", err))
	}
	if r.Body == nil {
		return
	}

	// The body is read through a tee, so the raw bytes can be put back for the client
	var rawBody bytes.Buffer
	var decodedBody strings.Builder
	reader, err := decode.Decode(io.NopCloser(io.TeeReader(r.Body, &rawBody)), r.Header.Get("Content-Encoding"))
	if err != nil {
		d.writeln(fmt.Sprintf("cannot read response body: %v", err))
	} else if _, err := io.Copy(&decodedBody, reader); err != nil {
		d.writeln(fmt.Sprintf("cannot read response body: %v", err))
	}
	r.Body = io.NopCloser(bytes.NewReader(rawBody.Bytes()))

	d.writeln("------")
	d.writeBody(decodedBody.String())
}

func (d *dumpTracer) writeBody(body string) {
	body = strings.TrimSpace(body)
	if len(body) > dumpTraceMaxLength && os.Getenv("HTTP_DUMP_TRACE_FULL") != "true" { //nolint:forbidigo
		d.writeln(body[:dumpTraceMaxLength])
		d.writeln("... (set env HTTP_DUMP_TRACE_FULL=true to see full output)")
	} else {
		d.writeln(body)
	}
}

func (d *dumpTracer) writeln(line string) {
	_, _ = fmt.Fprintln(d.wr, line)
}
