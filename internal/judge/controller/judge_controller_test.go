package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codejudge/internal/judge/controller"
	"codejudge/internal/judge/sandbox/result"
	"codejudge/internal/judge/service"
	appErr "codejudge/pkg/errors"

	"github.com/gin-gonic/gin"
)

type fakeJudge struct {
	runOutput string
	runErr    error
	verdict   result.Verdict
	submitErr error

	lastRun    service.RunRequest
	lastSubmit service.SubmitRequest
	calls      int
}

func (f *fakeJudge) Run(_ context.Context, req service.RunRequest) (string, error) {
	f.calls++
	f.lastRun = req
	return f.runOutput, f.runErr
}

func (f *fakeJudge) Submit(_ context.Context, req service.SubmitRequest) (result.Verdict, error) {
	f.calls++
	f.lastSubmit = req
	return f.verdict, f.submitErr
}

func newRouter(judge controller.Judge, guards controller.Guards) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	controller.Register(r, controller.NewJudgeController(judge), guards)
	return r
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	w := do(newRouter(&fakeJudge{}, controller.Guards{}), http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != controller.HealthMessage {
		t.Fatalf("unexpected health response %d %q", w.Code, w.Body.String())
	}
}

func TestRunEndpoint(t *testing.T) {
	cases := []struct {
		name       string
		judge      *fakeJudge
		body       string
		wantStatus int
		verify     func(t *testing.T, judge *fakeJudge, body map[string]any)
	}{
		{
			name:       "output",
			judge:      &fakeJudge{runOutput: "3\n"},
			body:       `{"code":"print(3)","input":"","language":"python"}`,
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, judge *fakeJudge, body map[string]any) {
				if body["output"] != "3\n" {
					t.Fatalf("unexpected body %v", body)
				}
				if judge.lastRun.Language != "python" || judge.lastRun.Code != "print(3)" {
					t.Fatalf("unexpected request %+v", judge.lastRun)
				}
			},
		},
		{
			name:       "formatted failure is still 200",
			judge:      &fakeJudge{runOutput: "❌ Compile Error:\nerror: expected ';'"},
			body:       `{"code":"int main(){","language":"cpp"}`,
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, _ *fakeJudge, body map[string]any) {
				if body["output"] != "❌ Compile Error:\nerror: expected ';'" {
					t.Fatalf("unexpected body %v", body)
				}
			},
		},
		{
			name:       "missing code",
			judge:      &fakeJudge{},
			body:       `{"language":"cpp"}`,
			wantStatus: http.StatusBadRequest,
			verify: func(t *testing.T, judge *fakeJudge, body map[string]any) {
				if body["error"] != "Code required" {
					t.Fatalf("unexpected body %v", body)
				}
				if judge.calls != 0 {
					t.Fatalf("judge must not be called")
				}
			},
		},
		{
			name:       "malformed body",
			judge:      &fakeJudge{},
			body:       `{"code":`,
			wantStatus: http.StatusBadRequest,
			verify:     func(*testing.T, *fakeJudge, map[string]any) {},
		},
		{
			name:       "judge fault",
			judge:      &fakeJudge{runErr: appErr.New(appErr.JudgeSystemError)},
			body:       `{"code":"x","language":"c"}`,
			wantStatus: http.StatusInternalServerError,
			verify: func(t *testing.T, _ *fakeJudge, body map[string]any) {
				if body["error"] != "Judge system error" {
					t.Fatalf("unexpected body %v", body)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newRouter(tc.judge, controller.Guards{}), http.MethodPost, "/run", tc.body, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			tc.verify(t, tc.judge, decode(t, w))
		})
	}
}

func TestSubmitEndpoint(t *testing.T) {
	cases := []struct {
		name       string
		judge      *fakeJudge
		body       string
		wantStatus int
		verify     func(t *testing.T, judge *fakeJudge, body map[string]any)
	}{
		{
			name:       "accepted",
			judge:      &fakeJudge{verdict: result.Accepted()},
			body:       `{"code":"x","language":"cpp","problemId":"p1"}`,
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, judge *fakeJudge, body map[string]any) {
				if body["verdict"] != "✅ Accepted" {
					t.Fatalf("unexpected body %v", body)
				}
				if _, ok := body["testCaseNumber"]; ok {
					t.Fatalf("accepted must not carry testCaseNumber")
				}
				if _, ok := body["failedTestCase"]; ok {
					t.Fatalf("accepted must not carry failedTestCase")
				}
				if judge.lastSubmit.Cookie != "token=abc" {
					t.Fatalf("expected cookie forwarded, got %q", judge.lastSubmit.Cookie)
				}
			},
		},
		{
			name:       "wrong answer shape",
			judge:      &fakeJudge{verdict: result.WrongAnswer(2, "2 2", "4", "5\n")},
			body:       `{"code":"x","language":"py","problemId":42}`,
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, judge *fakeJudge, body map[string]any) {
				if body["verdict"] != "❌ Wrong Answer" || body["testCaseNumber"] != float64(2) {
					t.Fatalf("unexpected body %v", body)
				}
				failed, ok := body["failedTestCase"].(map[string]any)
				if !ok {
					t.Fatalf("missing failedTestCase in %v", body)
				}
				if failed["input"] != "2 2" || failed["expectedOutput"] != "4" || failed["actualOutput"] != "5\n" {
					t.Fatalf("unexpected failed case %v", failed)
				}
				if judge.lastSubmit.ProblemID != "42" {
					t.Fatalf("expected numeric problem id as string, got %q", judge.lastSubmit.ProblemID)
				}
			},
		},
		{
			name:       "compile error verdict",
			judge:      &fakeJudge{verdict: result.FromExecError(result.NewExecError(result.FailureCompile, "bad"))},
			body:       `{"code":"x","language":"c","problemId":"p1"}`,
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, _ *fakeJudge, body map[string]any) {
				if body["verdict"] != "❌ Compile Error:\nbad" {
					t.Fatalf("unexpected body %v", body)
				}
			},
		},
		{
			name:       "missing fields",
			judge:      &fakeJudge{},
			body:       `{"code":"x","language":"cpp","problemId":"  "}`,
			wantStatus: http.StatusBadRequest,
			verify: func(t *testing.T, judge *fakeJudge, body map[string]any) {
				if body["error"] != "Missing required fields" {
					t.Fatalf("unexpected body %v", body)
				}
				if judge.calls != 0 {
					t.Fatalf("judge must not be called")
				}
			},
		},
		{
			name:       "problem not found",
			judge:      &fakeJudge{submitErr: appErr.New(appErr.ProblemNotFound)},
			body:       `{"code":"x","language":"cpp","problemId":"nope"}`,
			wantStatus: http.StatusNotFound,
			verify: func(t *testing.T, _ *fakeJudge, body map[string]any) {
				if body["error"] != "Problem not found" {
					t.Fatalf("unexpected body %v", body)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newRouter(tc.judge, controller.Guards{}), http.MethodPost, "/submit", tc.body, map[string]string{"Cookie": "token=abc"})
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			tc.verify(t, tc.judge, decode(t, w))
		})
	}
}

func TestGuardsApplyToJudgedRoutesOnly(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	judge := &fakeJudge{}
	r := newRouter(judge, controller.Guards{
		Run:    []gin.HandlerFunc{deny},
		Submit: []gin.HandlerFunc{deny},
	})

	if w := do(r, http.MethodGet, "/", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/run", `{"code":"x"}`, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("run must be guarded, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/submit", `{"code":"x","language":"c","problemId":"p"}`, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("submit must be guarded, got %d", w.Code)
	}
	if judge.calls != 0 {
		t.Fatalf("judge must not be reached")
	}
}

func TestFlexibleID(t *testing.T) {
	cases := []struct {
		raw    string
		expect controller.FlexibleID
		fails  bool
	}{
		{raw: `"abc"`, expect: "abc"},
		{raw: `"  abc "`, expect: "abc"},
		{raw: `17`, expect: "17"},
		{raw: `null`, expect: ""},
		{raw: `{}`, fails: true},
	}
	for _, tc := range cases {
		var id controller.FlexibleID
		err := json.Unmarshal([]byte(tc.raw), &id)
		if tc.fails {
			if err == nil {
				t.Fatalf("%s: expected error", tc.raw)
			}
			continue
		}
		if err != nil || id != tc.expect {
			t.Fatalf("%s: got %q, %v", tc.raw, id, err)
		}
	}
}
