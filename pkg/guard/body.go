package guard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/getmockd/rxmux/pkg/flow"
)

// BodyKey is the extension bag key holding the decoded JSON body.
const BodyKey = "__body"

// MaxBodyBytes bounds the body read by Body.
const MaxBodyBytes = 1 << 20

// ErrInvalidBody is returned by Body when the request body is not JSON.
var ErrInvalidBody = errors.New("request body is not valid JSON")

// Body returns the request body decoded as JSON. An empty body decodes to nil.
func Body(p *flow.Packet) (any, error) {
	if v, ok := p.Ext().Get(BodyKey); ok {
		return v, nil
	}

	var raw []byte
	if p.Req.Body != nil {
		var err error
		raw, err = io.ReadAll(io.LimitReader(p.Req.Body, MaxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		_ = p.Req.Body.Close()
		p.Req.Body = io.NopCloser(bytes.NewReader(raw))
	}

	var body any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
	}
	p.Ext().Set(BodyKey, body)
	return body, nil
}
