package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	value   *string
	getErr  error
	calls   int
	lastIn  *ssm.GetParameterInput
	errOnce bool
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	f.lastIn = in
	if f.errOnce {
		f.errOnce = false
		return nil, errors.New("temporary ssm failure")
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: f.value}}, nil
}

func strPtr(s string) *string { return &s }

func mustNew(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	c, err := New(api)
	require.NoError(t, err)
	return c
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestGetParameter_RequestsDecryption(t *testing.T) {
	api := &fakeAPI{value: strPtr("v")}
	v, err := mustNew(t, api).GetParameter(context.Background(), " /study/x ")
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.Equal(t, "/study/x", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_Errors(t *testing.T) {
	_, err := mustNew(t, &fakeAPI{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")

	_, err = mustNew(t, &fakeAPI{getErr: errors.New("boom")}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")

	_, err = mustNew(t, &fakeAPI{}).GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	_, err = (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestToken_CachedAfterFirstSuccess(t *testing.T) {
	api := &fakeAPI{value: strPtr(`{"token":"sk-from-ssm"}`)}
	c := mustNew(t, api)

	for i := 0; i < 3; i++ {
		tok, err := c.Token(context.Background(), "/study/open-ai-token")
		require.NoError(t, err)
		require.Equal(t, "sk-from-ssm", tok)
	}
	require.Equal(t, 1, api.calls, "SSM must only be called once per process lifetime")
}

func TestToken_FailureIsRetried(t *testing.T) {
	api := &fakeAPI{value: strPtr(`{"token":"sk"}`), errOnce: true}
	c := mustNew(t, api)

	_, err := c.Token(context.Background(), "/study/open-ai-token")
	require.ErrorContains(t, err, "temporary ssm failure")

	tok, err := c.Token(context.Background(), "/study/open-ai-token")
	require.NoError(t, err)
	require.Equal(t, "sk", tok)
	require.Equal(t, 2, api.calls)
}

func TestToken_BadPayloads(t *testing.T) {
	_, err := mustNew(t, &fakeAPI{value: strPtr(`{"broken`)}).Token(context.Background(), "p")
	require.ErrorContains(t, err, "unmarshal")

	_, err = mustNew(t, &fakeAPI{value: strPtr(`{"other":"value"}`)}).Token(context.Background(), "p")
	require.ErrorContains(t, err, "is empty")
}
