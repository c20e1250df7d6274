package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/kamusi/apps/api/echo"
	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
	emailsvc "github.com/trezcool/kamusi/services/email"
	"github.com/trezcool/kamusi/storage/database"
	sqlxrepos "github.com/trezcool/kamusi/storage/database/sqlx"
	"github.com/trezcool/kamusi/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	conf       *core.Config
	courseRepo course.Repository
	cardRepo   card.Repository
}

func setup(t *testing.T) testApp {
	t.Helper()

	// set up DB & repos
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	cardRepo := sqlxrepos.NewCardRepository(db)
	tx := database.NewTransactor(db)

	// set up services
	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.NopLogger{})
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// set up server
	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     testutil.NopLogger{},
		CourseSvc:  course.NewService(courseRepo, tx, mailSvc, conf),
		CardSvc:    card.NewService(cardRepo, tx),
		Validate:   validate,
		Translator: translator,
	})
	return testApp{Server: srv, conf: conf, courseRepo: courseRepo, cardRepo: cardRepo}
}

func (app testApp) token(t *testing.T, id core.Identity) string {
	t.Helper()
	token, err := GenerateToken(app.conf, GetIdentityClaims(app.conf, id))
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (app testApp) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchall(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
