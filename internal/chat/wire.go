package chat

import (
	"encoding/json"
	"fmt"
)

// Request is the JSON body POSTed to the inference endpoint. It never
// carries provider credentials; those live with the server.
type Request struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Reply is the body the bundled server answers with. It is one of the
// shapes DecodeResponse accepts.
type Reply struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer,omitempty"`
	Message string `json:"message,omitempty"`
}

// ResponseKind tags the shapes an endpoint may answer with.
type ResponseKind int

const (
	KindUnrecognized ResponseKind = iota
	KindSuccessAnswer
	KindAnswer
	KindResponseText
	KindFailure
)

func (k ResponseKind) String() string {
	switch k {
	case KindSuccessAnswer:
		return "success_answer"
	case KindAnswer:
		return "answer"
	case KindResponseText:
		return "response"
	case KindFailure:
		return "failure"
	default:
		return "unrecognized"
	}
}

// Response is a decoded endpoint body. Text holds the answer for the three
// answer shapes and the server's message for KindFailure.
type Response struct {
	Kind ResponseKind
	Text string
}

// OK reports whether the response carries an answer.
func (r Response) OK() bool {
	switch r.Kind {
	case KindSuccessAnswer, KindAnswer, KindResponseText:
		return true
	}
	return false
}

// DecodeResponse decodes body into one of the recognised shapes. Invalid JSON
// is an error; valid JSON of any other shape is KindUnrecognized.
func DecodeResponse(body []byte) (Response, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Response{Kind: KindUnrecognized}, nil
	}

	success, hasSuccess := boolField(fields, "success")
	if hasSuccess && !success {
		msg, _ := stringField(fields, "message")
		if msg == "" {
			msg, _ = stringField(fields, "error")
		}
		return Response{Kind: KindFailure, Text: msg}, nil
	}

	if answer, ok := stringField(fields, "answer"); ok && answer != "" {
		if hasSuccess {
			return Response{Kind: KindSuccessAnswer, Text: answer}, nil
		}
		return Response{Kind: KindAnswer, Text: answer}, nil
	}
	if hasSuccess {
		return Response{Kind: KindUnrecognized}, nil
	}

	if text, ok := stringField(fields, "response"); ok && text != "" {
		return Response{Kind: KindResponseText, Text: text}, nil
	}
	return Response{Kind: KindUnrecognized}, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func boolField(fields map[string]json.RawMessage, key string) (value, ok bool) {
	raw, present := fields[key]
	if !present {
		return false, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, false
	}
	return value, true
}
