package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newStubClient(fn roundTripFunc) *Client {
	return New("https://api.example.com/api", WithHTTPClient(&http.Client{Transport: fn}))
}

func TestDo_SendsJSONWithBearer(t *testing.T) {
	var captured *http.Request
	var capturedBody map[string]any

	client := newStubClient(func(req *http.Request) (*http.Response, error) {
		captured = req
		payload, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(payload, &capturedBody)
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	})

	resp, err := client.Do(context.Background(), Request{
		Method: http.MethodPatch,
		Path:   "messages/message",
		Body:   map[string]string{"msgBody": "hello", "messageId": "m1"},
		Token:  "tok",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))

	require.Equal(t, http.MethodPatch, captured.Method)
	require.Equal(t, "https://api.example.com/api/messages/message", captured.URL.String())
	require.Equal(t, "Bearer tok", captured.Header.Get("Authorization"))
	require.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	require.NotEmpty(t, captured.Header.Get("X-Request-ID"))
	require.Equal(t, resp.RequestID, captured.Header.Get("X-Request-ID"))
	require.Equal(t, "hello", capturedBody["msgBody"])
	require.Equal(t, "m1", capturedBody["messageId"])
}

func TestDo_NoTokenOmitsAuthorization(t *testing.T) {
	client := newStubClient(func(req *http.Request) (*http.Response, error) {
		require.Empty(t, req.Header.Get("Authorization"))
		return jsonResponse(http.StatusNoContent, ""), nil
	})
	_, err := client.Do(context.Background(), Request{Method: http.MethodDelete, Path: "messages/message"})
	require.NoError(t, err)
}

func TestDo_StatusErrorUsesMessageField(t *testing.T) {
	client := newStubClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{"message":"server error"}`), nil
	})

	_, err := client.Do(context.Background(), Request{Method: http.MethodDelete, Path: "messages/message"})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
	require.Equal(t, "server error", se.Message)
	require.Equal(t, "server error", Message(err))
}

func TestDo_StatusErrorFallsBackToGenericMessage(t *testing.T) {
	bodies := []string{``, `not json`, `{"error":"nope"}`, `{"message":42}`, `{"message":""}`}
	for _, body := range bodies {
		client := newStubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadRequest, body), nil
		})
		_, err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "messages/reply"})
		require.Error(t, err, body)
		require.Equal(t, GenericFailure, Message(err), body)
	}
}

func TestDo_NetworkFailureIsUnreachable(t *testing.T) {
	client := newStubClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "messages/reply"})
	require.ErrorIs(t, err, ErrUnreachable)
	require.Equal(t, GenericFailure, Message(err))
}

func TestMessage_Nil(t *testing.T) {
	require.Equal(t, "", Message(nil))
}
