package assertions

import (
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
		Duration:   100 * time.Millisecond,
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Assertion
	}{
		{"status", "status=200", &Assertion{Kind: KindStatus, Status: 200}},
		{"status with script", "status=201,3", &Assertion{Kind: KindStatus, Status: 201, ScriptID: 3}},
		{"body contains", "body_contains=ok", &Assertion{Kind: KindBodyContains, Substring: "ok"}},
		{"body contains with equals", "body_contains=a=b", &Assertion{Kind: KindBodyContains, Substring: "a=b"}},
		{"body contains with spaces", "body_contains=hello world,1", &Assertion{Kind: KindBodyContains, Substring: "hello world", ScriptID: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			tt.want.Raw = tt.input
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"no operator", "status200", "expected status"},
		{"unknown key", "header=x", "unknown assertion"},
		{"non-integer status", "status=abc", "not an integer"},
		{"space before comma", "status=200 ,1", "not an integer"},
		{"space after comma", "status=200, 1", "not an integer"},
		{"space around equals", "status = 200", "unknown assertion"},
		{"comma inside substring", "body_contains=a,b", "script id \"b\""},
		{"zero script id", "status=200,0", "positive integer"},
		{"empty substring", "body_contains=", "needs a substring"},
		{"empty", "", "expected status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var ierr *InvalidAssertionError
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.input, ierr.Input)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestEvaluator_Status(t *testing.T) {
	a, err := Parse("status=200")
	require.NoError(t, err)

	result := NewEvaluator(createResponse(200, `{}`)).Evaluate(a)
	assert.True(t, result.Passed)
	assert.Equal(t, 200, result.Actual)

	result = NewEvaluator(createResponse(404, `{}`)).Evaluate(a)
	assert.False(t, result.Passed)
	assert.Equal(t, "expected status 200, got 404", result.Message)
	assert.Equal(t, 200, result.Expected)
	assert.Equal(t, 404, result.Actual)
}

func TestEvaluator_BodyContains(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		body   string
		passed bool
	}{
		{"literal match", "body_contains=success", `{"status":"success"}`, true},
		{"case sensitive", "body_contains=Success", `{"status":"success"}`, false},
		{"no regex", "body_contains=s.*s", `{"status":"success"}`, false},
		{"quotes literal", `body_contains="id":1`, `{"id":1}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewEvaluator(createResponse(200, tt.body)).Check(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, result.Passed, result.Message)
		})
	}
}

func TestEvaluator_DispatchesOnPassOnly(t *testing.T) {
	var got []ScriptCommand
	dispatcher := DispatcherFunc(func(cmd ScriptCommand) {
		got = append(got, cmd)
	})
	req := http.NewRequest("GET", "https://x")

	pass := NewEvaluator(createResponse(200, "ok"), WithRequest(req), WithDispatcher(dispatcher))
	result, err := pass.Check("status=200,2")
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.ScriptID)

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ScriptID)
	assert.Same(t, req, got[0].Request)
	assert.Equal(t, 200, got[0].Response.StatusCode)

	fail := NewEvaluator(createResponse(500, "ok"), WithRequest(req), WithDispatcher(dispatcher))
	result, err = fail.Check("status=200,2")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Zero(t, result.ScriptID)
	assert.Len(t, got, 1)

	noScript := NewEvaluator(createResponse(200, "ok"), WithDispatcher(dispatcher))
	_, err = noScript.Check("status=200")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEvaluator_CheckInvalid(t *testing.T) {
	called := false
	e := NewEvaluator(createResponse(200, "ok"), WithDispatcher(DispatcherFunc(func(ScriptCommand) { called = true })))

	result, err := e.Check("status=ok,1")
	assert.Nil(t, result)
	var ierr *InvalidAssertionError
	assert.True(t, errors.As(err, &ierr))
	assert.False(t, called)
}
