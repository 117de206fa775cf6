package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubMethod is a canned Method for registry and fallback tests.
type stubMethod struct {
	methodType    MethodType
	storageState  bool
	result        *Result
	err           error
	authenticated int
}

func (s *stubMethod) Authenticate(ctx context.Context, creds Credentials) (*Result, error) {
	s.authenticated++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubMethod) Type() MethodType          { return s.methodType }
func (s *stubMethod) SupportsStorageState() bool { return s.storageState }

func stubFactory(m Method) Factory {
	return func() (Method, error) { return m, nil }
}

func TestRegistry_CreateKnownMethod(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	reg.Register(TypeJWT, stubFactory(&stubMethod{methodType: TypeJWT}))

	method, err := reg.Create(TypeJWT)
	require.NoError(t, err)
	assert.Equal(t, TypeJWT, method.Type())
}

func TestRegistry_UnknownKeyNamesKnownSet(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	reg.Register(TypeJWT, stubFactory(&stubMethod{methodType: TypeJWT}))
	reg.Register(TypeLogin, stubFactory(&stubMethod{methodType: TypeLogin}))

	_, err := reg.Create("oauth")
	require.Error(t, err)

	var unknownErr *UnknownMethodError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, MethodType("oauth"), unknownErr.Key)
	assert.Contains(t, err.Error(), `"oauth"`)
	assert.Contains(t, err.Error(), "jwt")
	assert.Contains(t, err.Error(), "login")
}

func TestRegistry_ReRegistrationLastWriteWins(t *testing.T) {
	t.Parallel()

	first := &stubMethod{methodType: TypeJWT, storageState: true}
	second := &stubMethod{methodType: TypeJWT, storageState: false}

	reg := NewRegistry(nil)
	reg.Register(TypeJWT, stubFactory(first))
	reg.Register(TypeJWT, stubFactory(second))

	method, err := reg.Create(TypeJWT)
	require.NoError(t, err)
	assert.Same(t, second, method.(*stubMethod))
}

func TestRegistry_Known(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	reg.Register(TypeUILogin, stubFactory(&stubMethod{methodType: TypeUILogin}))
	reg.Register(TypeJWT, stubFactory(&stubMethod{methodType: TypeJWT}))

	assert.Equal(t, []MethodType{TypeJWT, TypeUILogin}, reg.Known())
}

func TestRegistry_CreateWithFallback(t *testing.T) {
	t.Parallel()

	primary := &stubMethod{methodType: TypeJWT, err: NewNetworkError("down", nil)}
	secondary := &stubMethod{
		methodType:   TypeLogin,
		storageState: true,
		result:       &Result{Token: "tok", User: map[string]any{"id": "1"}},
	}

	reg := NewRegistry(nil)
	reg.Register(TypeJWT, stubFactory(primary))
	reg.Register(TypeLogin, stubFactory(secondary))

	method, err := reg.CreateWithFallback(TypeJWT, TypeLogin)
	require.NoError(t, err)

	assert.Contains(t, string(method.Type()), "jwt")
	assert.Contains(t, string(method.Type()), "login")

	result, err := method.Authenticate(context.Background(), Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "tok", result.Token)
}

func TestRegistry_CreateWithFallbackUnknownKey(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	reg.Register(TypeJWT, stubFactory(&stubMethod{methodType: TypeJWT}))

	var unknownErr *UnknownMethodError

	_, err := reg.CreateWithFallback(TypeJWT, "nope")
	require.True(t, errors.As(err, &unknownErr))

	_, err = reg.CreateWithFallback("nope", TypeJWT)
	require.True(t, errors.As(err, &unknownErr))
}
