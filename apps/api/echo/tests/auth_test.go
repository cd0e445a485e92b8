package tests

import (
	"net/http"
	"testing"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
	testutil "github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/tests"
)

func Test_authApi_login(t *testing.T) {
	server := setup(t)

	testutil.CreateProfile(t, acctRepo, "admin@kuet.ac.bd", account.RoleAdmin, "adm1np4ss", true)
	testutil.CreateProfile(t, acctRepo, "gone@kuet.ac.bd", account.RoleTeacher, "t34ch3r", false)

	body := func(email, pwd string) []byte {
		return []byte(`{"email": "` + email + `", "password": "` + pwd + `"}`)
	}
	errAuthFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "Missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
			}}),
		},
		{name: "Unknown email", body: body("nobody@kuet.ac.bd", "adm1np4ss"), wantCode: http.StatusBadRequest, wantData: errAuthFailed},
		{name: "Wrong password", body: body("admin@kuet.ac.bd", "wrong"), wantCode: http.StatusBadRequest, wantData: errAuthFailed},
		{name: "Deactivated account", body: body("gone@kuet.ac.bd", "t34ch3r"), wantCode: http.StatusBadRequest, wantData: errAuthFailed},
		{name: "OK", body: body("admin@kuet.ac.bd", "adm1np4ss"), wantCode: http.StatusOK},
		{name: "Email is case-insensitive", body: body("Admin@KUET.ac.bd", "adm1np4ss"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				resp := decodeBody(t, rec)
				if token, _ := resp["token"].(string); token == "" {
					t.Errorf("no token in %s", rec.Body.String())
				}
			}
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	server := setup(t)

	admin := testutil.CreateProfile(t, acctRepo, "admin@kuet.ac.bd", account.RoleAdmin, "adm1np4ss", true)
	adminToken := getToken(t, admin)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
		server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("OK", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", adminToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

		resp := decodeBody(t, rec)
		if token, _ := resp["token"].(string); token == "" {
			t.Errorf("no token in %s", rec.Body.String())
		}
	})

	t.Run("Deactivated account", func(t *testing.T) {
		gone := testutil.CreateProfile(t, acctRepo, "gone@kuet.ac.bd", account.RoleTeacher, "t34ch3r", false)
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, gone))
		server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})}
		checkCodeAndData(t, tt, rec)
	})
}
