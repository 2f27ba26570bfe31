package guard

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/rxmux/pkg/flow"
	"github.com/getmockd/rxmux/pkg/stream"
	"github.com/getmockd/rxmux/pkg/stream/streamtest"
	"github.com/getmockd/rxmux/pkg/web"
)

func newPacket(t *testing.T, method, target, body string) (*flow.Packet, *httptest.ResponseRecorder) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	req := web.NewRequest(httptest.NewRequest(method, target, rd))
	return flow.NewPacket(req, web.NewResponse(rec), func(error) {}, nil), rec
}

func TestBody(t *testing.T) {
	p, _ := newPacket(t, http.MethodPost, "/", `{"name":"ada","age":36}`)

	body, err := Body(p)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada", "age": float64(36)}, body)

	// the raw body is still readable
	raw, err := io.ReadAll(p.Req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"ada","age":36}`, string(raw))

	// cached
	again, err := Body(p)
	require.NoError(t, err)
	assert.Equal(t, body, again)
}

func TestBodyEmptyAndInvalid(t *testing.T) {
	p, _ := newPacket(t, http.MethodGet, "/", "")
	body, err := Body(p)
	require.NoError(t, err)
	assert.Nil(t, body)

	p, _ = newPacket(t, http.MethodPost, "/", "{nope")
	_, err = Body(p)
	assert.ErrorIs(t, err, ErrInvalidBody)
}

func TestExpr(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"method", `method == "GET"`, true},
		{"path", `path startsWith "/users"`, true},
		{"param", `params.id == "42"`, true},
		{"query", `query.debug == "true"`, true},
		{"header", `headers["X-Role"] == "admin"`, true},
		{"missing header", `headers["X-Other"] == "x"`, false},
		{"ext", `ext.tenant == "acme"`, true},
		{"combined", `params.id != "0" && query.debug != "true"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPacket(t, http.MethodGet, "/users/42?debug=true", "")
			p.Req.Header.Set("X-Role", "admin")
			p.Req.SetRoute(web.Route{Params: map[string]string{"id": "42"}, Path: "/users/42"})
			p.Ext().Set("tenant", "acme")

			pred, err := Expr(tt.src)
			require.NoError(t, err)
			ok, err := pred(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestExprCompileErrors(t *testing.T) {
	_, err := Expr(`method ==`)
	assert.Error(t, err)

	_, err = Expr(`method`)
	assert.Error(t, err, "non-boolean expressions are rejected")

	assert.Panics(t, func() { MustExpr(`(`) })
}

func TestHMACBearer(t *testing.T) {
	secret := []byte("s3cret")
	valid, err := Sign(secret, jwt.MapClaims{"sub": "ada", "exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)
	expired, err := Sign(secret, jwt.MapClaims{"sub": "ada", "exp": time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, err)
	forged, err := Sign([]byte("other"), jwt.MapClaims{"sub": "eve"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"valid", "Bearer " + valid, true},
		{"lowercase scheme", "bearer " + valid, true},
		{"missing", "", false},
		{"basic scheme", "Basic abc", false},
		{"empty token", "Bearer ", false},
		{"expired", "Bearer " + expired, false},
		{"wrong key", "Bearer " + forged, false},
		{"garbage", "Bearer not.a.jwt", false},
	}

	pred := HMACBearer(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPacket(t, http.MethodGet, "/", "")
			if tt.header != "" {
				p.Req.Header.Set("Authorization", tt.header)
			}
			ok, err := pred(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, "ada", Claims(p)["sub"])
			} else {
				assert.Nil(t, Claims(p))
			}
		})
	}
}

func TestHMACBearerRejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "eve"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	p, _ := newPacket(t, http.MethodGet, "/", "")
	p.Req.Header.Set("Authorization", "Bearer "+token)
	ok, err := HMACBearer([]byte("s3cret"))(p)
	require.NoError(t, err)
	assert.False(t, ok)
}

const userSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"age": {"type": "integer", "minimum": 0}
	}
}`

func TestSchema(t *testing.T) {
	pred, err := Schema(userSchema)
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{"valid", `{"name":"ada","age":36}`, true},
		{"missing name", `{"age":36}`, false},
		{"negative age", `{"name":"ada","age":-1}`, false},
		{"wrong type", `["ada"]`, false},
		{"not json", `name=ada`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPacket(t, http.MethodPost, "/", tt.body)
			ok, err := pred(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.NotEmpty(t, p.Ext().Value(SchemaErrorsKey))
			}
		})
	}
}

func TestSchemaInvalid(t *testing.T) {
	_, err := Schema(`{"type":`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustSchema(`{"type": 12}`) })
}

func TestJSONPath(t *testing.T) {
	body := `{"user":{"name":"ada","roles":["admin","dev"],"age":36}}`

	tests := []struct {
		name     string
		path     string
		expected any
		want     bool
	}{
		{"exists", "$.user.name", nil, true},
		{"absent", "$.user.email", nil, false},
		{"string equal", "$.user.name", "ada", true},
		{"string differs", "$.user.name", "bob", false},
		{"number coerced", "$.user.age", 36, true},
		{"any array element", "$.user.roles[*]", "admin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPacket(t, http.MethodPost, "/", body)
			pred, err := JSONPath(tt.path, tt.expected)
			require.NoError(t, err)
			ok, err := pred(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestJSONPathInvalid(t *testing.T) {
	_, err := JSONPath("$.a[1", nil)
	assert.Error(t, err)

	p, _ := newPacket(t, http.MethodPost, "/", "{nope")
	ok, err := MustJSONPath("$.a", nil)(p)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuardsWithGates(t *testing.T) {
	secret := []byte("s3cret")
	token, err := Sign(secret, jwt.MapClaims{"sub": "ada"})
	require.NoError(t, err)

	run := func(auth, body string) *httptest.ResponseRecorder {
		p, rec := newPacket(t, http.MethodPost, "/users", body)
		if auth != "" {
			p.Req.Header.Set("Authorization", "Bearer "+auth)
		}
		out := streamtest.NewRecorder[*flow.Packet]()
		stream.Pipe(stream.Of(p),
			flow.Authorize(HMACBearer(secret)),
			flow.Validate(MustSchema(userSchema), flow.WithMessage("invalid user")),
			flow.JSON(func(p *flow.Packet) (any, error) {
				return map[string]any{"created_by": Claims(p)["sub"]}, nil
			}),
		).Subscribe(out)
		require.True(t, out.WaitTerminated(time.Second))
		return rec
	}

	rec := run("", `{"name":"ada"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = run(token, `{"age":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid user", rec.Body.String())

	rec = run(token, `{"name":"ada"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"created_by":"ada"}`, rec.Body.String())
}
