package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/trainings/core/user"
	"github.com/trezcool/trainings/testutil"
)

func Test_userApi_create(t *testing.T) {
	env, srv := setup(t)

	admin := testutil.CreateUser(t, env.UsrRepo, "Admin", "admin@test.cd", user.RoleAdmin)
	student := testutil.CreateUser(t, env.UsrRepo, "Student", "student@test.cd", user.RoleStudent)
	adminToken := getToken(t, env, admin)

	newUser := func(name, email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{Name: name, Email: email, Roles: roles})
	}

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", method: http.MethodPost, path: "/v1/users", token: getToken(t, env, student),
			body: newUser("Joe", "joe@test.cd", user.RoleStudent), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "blank data", method: http.MethodPost, path: "/v1/users", token: adminToken, body: []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":  "this field is required",
				"email": "this field is required",
				"roles": "this field is required",
			}),
		},
		{
			name: "email taken", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body: newUser("Stu", "STUDENT@test.cd", user.RoleStudent), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	}
	runHTTPTests(t, srv, tests)

	t.Run("created", func(t *testing.T) {
		var usr user.User
		decode(t, srv, http.MethodPost, "/v1/users", adminToken, newUser(" Joe ", "Joe@Test.cd", user.RoleInstructor), http.StatusCreated, &usr)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "Joe", usr.Name)
		assert.Equal(t, "joe@test.cd", usr.Email)
		assert.True(t, usr.IsInstructor())

		got, err := env.UsrRepo.GetUserByID(context.Background(), usr.ID)
		if assert.NoError(t, err) {
			assert.Equal(t, usr.Email, got.Email)
		}
	})
}

func Test_userApi_retrieve(t *testing.T) {
	env, srv := setup(t)

	admin := testutil.CreateUser(t, env.UsrRepo, "Admin", "admin@test.cd", user.RoleAdmin)
	student := testutil.CreateUser(t, env.UsrRepo, "Student", "student@test.cd", user.RoleStudent)
	studentToken := getToken(t, env, student)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + admin.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "found", path: "/v1/users/" + admin.ID, token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, admin)},
		{
			name: "not found", path: "/v1/users/unknown", token: studentToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpCodeErr{Error: user.ErrNotFound.Error(), Code: "not_found"}),
		},
		{name: "query requires admin", path: "/v1/users", token: studentToken, wantCode: http.StatusForbidden},
		{name: "query", path: "/v1/users?role=student:", token: getToken(t, env, admin), wantCode: http.StatusOK, wantData: marchallList(t, student)},
	}
	runHTTPTests(t, srv, tests)
}
