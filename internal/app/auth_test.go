package app

import (
	"errors"
	"testing"

	"drawtrack/pkg/auth"
	"drawtrack/pkg/domain"
)

func newTestTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager("test-secret", 0)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return tm
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	a := newTestApp(t)
	sess, err := a.Register(RegisterInput{Name: "Root", Email: "root@example.com", Password: "longenough", Role: "viewer"}, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.User.Role != domain.RoleAdmin {
		t.Fatalf("first user role = %q, want admin", sess.User.Role)
	}
	if sess.Token == "" {
		t.Fatalf("register should issue a token")
	}
}

func TestRegisterAdminRoleRequiresAdminActor(t *testing.T) {
	a := newTestApp(t)
	first, err := a.Register(RegisterInput{Name: "Root", Email: "root@example.com", Password: "longenough"}, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// Anonymous caller cannot mint admins once one exists.
	_, err = a.Register(RegisterInput{Name: "Evil", Email: "evil@example.com", Password: "longenough", Role: "admin"}, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous admin grant err = %v, want ErrUnauthorized", err)
	}

	// Viewer actor cannot either.
	viewer, err := a.Register(RegisterInput{Name: "View", Email: "view@example.com", Password: "longenough"}, nil)
	if err != nil {
		t.Fatalf("register viewer: %v", err)
	}
	viewerClaims, err := a.VerifyToken(viewer.Token)
	if err != nil {
		t.Fatalf("verify viewer token: %v", err)
	}
	_, err = a.Register(RegisterInput{Name: "Evil2", Email: "evil2@example.com", Password: "longenough", Role: "admin"}, &viewerClaims)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("viewer admin grant err = %v, want ErrUnauthorized", err)
	}

	// Admin actor can.
	adminClaims, err := a.VerifyToken(first.Token)
	if err != nil {
		t.Fatalf("verify admin token: %v", err)
	}
	sess, err := a.Register(RegisterInput{Name: "Second", Email: "second@example.com", Password: "longenough", Role: "admin"}, &adminClaims)
	if err != nil {
		t.Fatalf("admin grant: %v", err)
	}
	if sess.User.Role != domain.RoleAdmin {
		t.Fatalf("granted role = %q, want admin", sess.User.Role)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)
	cases := []RegisterInput{
		{Name: "", Email: "a@example.com", Password: "longenough"},
		{Name: "A", Email: "not-an-email", Password: "longenough"},
		{Name: "A", Email: "a@example.com", Password: "short"},
		{Name: "A", Email: "a@example.com", Password: "longenough", Role: "superuser"},
	}
	for _, in := range cases {
		if _, err := a.Register(in, nil); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: err = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.Register(RegisterInput{Name: "A", Email: "a@example.com", Password: "longenough"}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := a.Register(RegisterInput{Name: "B", Email: "A@Example.com", Password: "longenough"}, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email err = %v, want ErrConflict", err)
	}
}

func TestLoginSuccessAndFailure(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.Register(RegisterInput{Name: "A", Email: "a@example.com", Password: "longenough"}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	sess, err := a.Login(LoginInput{Email: "A@EXAMPLE.COM", Password: "longenough"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := a.VerifyToken(sess.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "a@example.com" {
		t.Fatalf("claims email = %q", claims.Email)
	}

	// Wrong password and unknown email fail identically.
	_, errPw := a.Login(LoginInput{Email: "a@example.com", Password: "wrongwrong"})
	_, errEmail := a.Login(LoginInput{Email: "ghost@example.com", Password: "longenough"})
	if !errors.Is(errPw, ErrUnauthorized) || !errors.Is(errEmail, ErrUnauthorized) {
		t.Fatalf("errs = %v / %v, want ErrUnauthorized for both", errPw, errEmail)
	}
	if errPw.Error() != errEmail.Error() {
		t.Fatalf("login failures must not reveal which credential failed: %q vs %q", errPw, errEmail)
	}
}

func TestMeResolvesUser(t *testing.T) {
	a := newTestApp(t)
	sess, err := a.Register(RegisterInput{Name: "A", Email: "a@example.com", Password: "longenough"}, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := a.VerifyToken(sess.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	u, err := a.Me(claims)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if u.ID != sess.User.ID || u.Email != "a@example.com" {
		t.Fatalf("me returned wrong user: %+v", u)
	}

	if _, err := a.Me(auth.Claims{UserID: 9999}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("deleted user err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.VerifyToken("not.a.token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}
