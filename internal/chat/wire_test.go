package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Response
	}{
		{"success with answer", `{"success":true,"answer":"Hello"}`, Response{Kind: KindSuccessAnswer, Text: "Hello"}},
		{"bare answer", `{"answer":"Hi"}`, Response{Kind: KindAnswer, Text: "Hi"}},
		{"response field", `{"response":"Yo"}`, Response{Kind: KindResponseText, Text: "Yo"}},
		{"failure with message", `{"success":false,"message":"quota"}`, Response{Kind: KindFailure, Text: "quota"}},
		{"failure with error", `{"success":false,"error":"boom"}`, Response{Kind: KindFailure, Text: "boom"}},
		{"failure prefers message", `{"success":false,"message":"m","error":"e"}`, Response{Kind: KindFailure, Text: "m"}},
		{"failure without text", `{"success":false}`, Response{Kind: KindFailure}},
		{"failure wins over answer", `{"success":false,"answer":"x"}`, Response{Kind: KindFailure}},
		{"empty object", `{}`, Response{Kind: KindUnrecognized}},
		{"empty answer", `{"answer":""}`, Response{Kind: KindUnrecognized}},
		{"answer not a string", `{"answer":42}`, Response{Kind: KindUnrecognized}},
		{"success without answer", `{"success":true,"response":"x"}`, Response{Kind: KindUnrecognized}},
		{"array", `["answer"]`, Response{Kind: KindUnrecognized}},
		{"null", `null`, Response{Kind: KindUnrecognized}},
		{"string", `"answer"`, Response{Kind: KindUnrecognized}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeResponse([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeResponse_InvalidJSON(t *testing.T) {
	_, err := DecodeResponse([]byte(`<html>502 Bad Gateway</html>`))
	assert.Error(t, err)
}

func TestResponseOK(t *testing.T) {
	assert.True(t, Response{Kind: KindSuccessAnswer}.OK())
	assert.True(t, Response{Kind: KindAnswer}.OK())
	assert.True(t, Response{Kind: KindResponseText}.OK())
	assert.False(t, Response{Kind: KindFailure}.OK())
	assert.False(t, Response{Kind: KindUnrecognized}.OK())
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want FailureKind
	}{
		{404, FailureEndpointNotFound},
		{405, FailureMethodNotAllowed},
		{500, FailureServerError},
		{502, FailureServerError},
		{503, FailureServerError},
		{400, FailureClientError},
		{429, FailureClientError},
	}
	for _, tc := range tests {
		f := classifyStatus(tc.code, "")
		assert.Equal(t, tc.want, f.Kind, "status %d", tc.code)
		assert.NotEmpty(t, f.UserMessage())
	}
}

func TestFailureUserMessage(t *testing.T) {
	assert.Contains(t, (&Failure{Kind: FailureTimeout}).UserMessage(), "overloaded")
	assert.Contains(t, (&Failure{Kind: FailureNetwork}).UserMessage(), "Cannot reach")
	assert.Contains(t, (&Failure{Kind: FailureEndpointNotFound}).UserMessage(), "endpoint configuration")
	assert.Contains(t, (&Failure{Kind: FailureMethodNotAllowed}).UserMessage(), "HTTP verb")
	assert.Contains(t, (&Failure{Kind: FailureServerError, StatusCode: 500}).UserMessage(), "server logs")
	assert.Contains(t, (&Failure{Kind: FailureMalformedResponse}).UserMessage(), "unexpected response")
	assert.Equal(t, "quota exceeded", (&Failure{Kind: FailureRemote, Detail: "quota exceeded"}).UserMessage())
}
