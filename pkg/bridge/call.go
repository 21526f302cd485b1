package bridge

import (
	"encoding/json"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/tidy"
)

// Request is one JSON call: {"op": "extract", "args": {...}}.
type Request struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response is the reply to a Request. Exactly one of Result and Error is set.
type Response struct {
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo is the plain-data form of an error.
type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Stage   string         `json:"stage,omitempty"`
	Detail  *errors.Detail `json:"detail,omitempty"`
}

// NewErrorInfo converts err. Errors without a code report INTERNAL_ERROR.
func NewErrorInfo(err error) *ErrorInfo {
	info := &ErrorInfo{
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
		Stage:   string(errors.StageOf(err)),
	}
	if info.Code == "" {
		info.Code = string(errors.ErrCodeInternal)
	}
	if d, ok := errors.GetDetail(err); ok && !isZero(d) {
		info.Detail = &d
	}
	return info
}

func isZero(d errors.Detail) bool {
	return d.Axis == "" && d.Option == "" && d.Constraint == "" &&
		len(d.Identifiers) == 0 && len(d.Options) == 0 && len(d.Missing) == 0 &&
		len(d.Extra) == 0 && len(d.Expected) == 0 && len(d.Actual) == 0
}

type handlerFunc func(b *Bridge, args json.RawMessage) (any, error)

var ops = map[string]handlerFunc{
	"open_source":    callOpenSource,
	"close_source":   callCloseSource,
	"describe":       callDescribe,
	"entities":       callEntities,
	"extract":        callExtract,
	"build_veneer":   callBuildVeneer,
	"render":         callRender,
	"figure":         callFigure,
	"export":         callExport,
	"release_figure": callReleaseFigure,
}

// Call decodes a JSON request, runs it and encodes the response. It never
// fails: every error is reported inside the response.
func (b *Bridge) Call(request []byte) []byte {
	resp := b.call(request)
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(Response{Error: NewErrorInfo(
			errors.Wrap(errors.ErrCodeInternal, err, "encode response"))})
	}
	return out
}

func (b *Bridge) call(request []byte) Response {
	var req Request
	if err := json.Unmarshal(request, &req); err != nil {
		return Response{Error: NewErrorInfo(errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))}
	}
	h, ok := ops[req.Op]
	if !ok {
		return Response{Error: NewErrorInfo(errors.New(errors.ErrCodeUnsupported, "unknown op %q", req.Op))}
	}
	result, err := h(b, req.Args)
	if err != nil {
		return Response{Error: NewErrorInfo(err)}
	}
	return Response{OK: true, Result: result}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode args")
	}
	return nil
}

func callOpenSource(b *Bridge, raw json.RawMessage) (any, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	h, err := b.OpenSource(args.Path)
	if err != nil {
		return nil, err
	}
	return map[string]string{"source": h}, nil
}

type sourceArgs struct {
	Source string `json:"source"`
}

func callCloseSource(b *Bridge, raw json.RawMessage) (any, error) {
	var args sourceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, b.CloseSource(args.Source)
}

func callDescribe(b *Bridge, raw json.RawMessage) (any, error) {
	var args sourceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return b.Describe(args.Source)
}

func callEntities(b *Bridge, raw json.RawMessage) (any, error) {
	var args struct {
		Source string `json:"source"`
		Axis   string `json:"axis"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return b.Entities(args.Source, args.Axis)
}

func callExtract(b *Bridge, raw json.RawMessage) (any, error) {
	var args struct {
		Source   string         `json:"source"`
		Entities []string       `json:"entities"`
		Options  map[string]any `json:"options"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return b.Extract(args.Source, args.Entities, args.Options)
}

func callBuildVeneer(b *Bridge, raw json.RawMessage) (any, error) {
	var args struct {
		Options map[string]any `json:"options"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return b.BuildVeneer(args.Options)
}

func callRender(b *Bridge, raw json.RawMessage) (any, error) {
	var args struct {
		Table   *tidy.Dataset  `json:"table"`
		Options map[string]any `json:"options"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Table == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "render needs a table")
	}
	h, err := b.Render(*args.Table, args.Options)
	if err != nil {
		return nil, err
	}
	return map[string]string{"figure": h}, nil
}

type figureArgs struct {
	Figure string `json:"figure"`
}

func callFigure(b *Bridge, raw json.RawMessage) (any, error) {
	var args figureArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return b.Figure(args.Figure)
}

func callExport(b *Bridge, raw json.RawMessage) (any, error) {
	var args struct {
		Figure string  `json:"figure"`
		Format string  `json:"format"`
		Scale  float64 `json:"scale"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	data, err := b.Export(args.Figure, args.Format, args.Scale)
	if err != nil {
		return nil, err
	}
	return exportResult(args.Format, data), nil
}

func callReleaseFigure(b *Bridge, raw json.RawMessage) (any, error) {
	var args figureArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, b.ReleaseFigure(args.Figure)
}
