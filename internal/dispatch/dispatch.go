// Package dispatch maps request strings of the form "METHOD path?query"
// onto device facades and renders the results. Routes are chosen by the
// device's family tag.
package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/KevinKickass/OpenMachineIO/internal/devices"
	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

const (
	contentTypeText = "text/plain"
	contentTypeJSON = "application/json"
)

// Response is a rendered call result.
type Response struct {
	Status      int
	ContentType string
	Body        string
}

// OK reports whether the call succeeded.
func (r Response) OK() bool { return r.Status == http.StatusOK }

// Resolver finds devices by id or name.
type Resolver interface {
	Lookup(ref string) (*devices.Device, error)
}

type Router struct {
	devices Resolver
}

func NewRouter(devices Resolver) *Router {
	return &Router{devices: devices}
}

// Call routes one request to the device named by ref.
func (r *Router) Call(ref, method, path string) Response {
	d, err := r.devices.Lookup(ref)
	if err != nil {
		return errorResponse(err)
	}
	return Handle(d, method, path)
}

// Handle routes one request to d. The facade call runs under the device
// lock.
func Handle(d *devices.Device, method, path string) Response {
	path, rawQuery, _ := strings.Cut(strings.TrimPrefix(path, "/"), "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return errorResponse(&types.UnsupportedValueError{What: "query", Value: rawQuery})
	}
	segments := strings.Split(strings.TrimSuffix(path, "/"), "/")
	method = strings.ToUpper(method)

	for _, rt := range routes {
		if rt.family != d.Family() || rt.method != method {
			continue
		}
		args, ok := match(rt.pattern, segments)
		if !ok {
			continue
		}

		var res result
		err := d.Exec(func() error {
			var err error
			res, err = rt.handle(d, args, query)
			return err
		})
		if err != nil {
			return errorResponse(err)
		}
		return Response{Status: http.StatusOK, ContentType: res.contentType, Body: res.body}
	}

	return errorResponse(&routeError{method: method, path: path})
}

type routeError struct {
	method string
	path   string
}

func (e *routeError) Error() string {
	return "no route for " + e.method + " " + e.path
}

func (e *routeError) Unwrap() error { return types.ErrNotFound }

// StatusCode maps an error code to the status reported with it.
func StatusCode(code string) int {
	switch code {
	case types.CodeRange, types.CodeUnsupportedValue:
		return http.StatusBadRequest
	case types.CodeUnsupportedOperation:
		return http.StatusNotImplemented
	case types.CodeTransport:
		return http.StatusBadGateway
	case types.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) Response {
	code := types.ErrorCode(err)

	var details interface{}
	var trErr *types.TransportError
	if errors.As(err, &trErr) {
		details = map[string]interface{}{
			"bus":      trErr.Bus,
			"address":  trErr.Addr,
			"register": trErr.Register,
			"op":       trErr.Op,
		}
	}

	body, mErr := json.Marshal(types.NewErrorResponse(code, err.Error(), details))
	if mErr != nil {
		body = []byte(`{"error":{"code":"INTERNAL","message":"failed to render error"}}`)
	}
	return Response{Status: StatusCode(code), ContentType: contentTypeJSON, Body: string(body)}
}

// channelJSON renders a channel-indexed mapping as a JSON object whose
// keys appear in ascending channel order.
func channelJSON[V any](values map[int]V) (result, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for ch := 0; ch < len(values); ch++ {
		v, ok := values[ch]
		if !ok {
			return result{}, errors.New("channel mapping has gaps")
		}
		if ch > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(ch)))
		buf.WriteByte(':')
		data, err := json.Marshal(v)
		if err != nil {
			return result{}, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return result{body: buf.String(), contentType: contentTypeJSON}, nil
}
