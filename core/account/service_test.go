package account_test

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/credential"
	emailsvc "github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/services/email"
	inmemdb "github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/storage/database/inmem"
)

var sixDigitRegex = regexp.MustCompile(`^[0-9]{6}$`)

func setup(t *testing.T) (account.Service, account.Repository) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	repo := inmemdb.NewAccountRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(core.NewConfig())
	return account.NewServiceMock(repo, mailSvc), repo
}

func newStudent(roll string) account.NewStudent {
	return account.NewStudent{
		FullName: "Fahim Rahman",
		Email:    "s" + roll + "@stud.kuet.ac.bd",
		Phone:    "+8801712345678",
		RollNo:   roll,
		Term:     "2-1",
		Session:  "2021",
	}
}

func TestServiceCreateStudent(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, secret, err := svc.CreateStudent(ctx, newStudent("2107001"))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if secret != "2107001" {
		t.Errorf("initial password = %q; want roll number", secret)
	}
	if acct.Profile.Role != account.RoleStudent {
		t.Errorf("role = %q; want %q", acct.Profile.Role, account.RoleStudent)
	}
	if !acct.Profile.IsActive {
		t.Error("new account is not active")
	}
	if err := credential.Verify(secret, acct.Profile.PasswordHash); err != nil {
		t.Errorf("stored hash does not match initial password: %v", err)
	}

	// the hash must never serialize
	data, err := json.Marshal(acct)
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	if strings.Contains(string(data), "password") {
		t.Errorf("serialized account leaks credential material: %s", data)
	}

	// duplicate roll number
	dup := newStudent("2107001")
	dup.Email = "other@stud.kuet.ac.bd"
	if _, _, err = svc.CreateStudent(ctx, dup); err != account.ErrRollNoExists {
		t.Errorf("duplicate roll err = %v; want ErrRollNoExists", err)
	}

	// duplicate email
	dup = newStudent("2107002")
	dup.Email = "s2107001@stud.kuet.ac.bd"
	if _, _, err = svc.CreateStudent(ctx, dup); err != account.ErrEmailExists {
		t.Errorf("duplicate email err = %v; want ErrEmailExists", err)
	}
}

func TestServiceCreateStudentWelcomeEmailHasNoSecret(t *testing.T) {
	svc, _ := setup(t)

	before := len(emailsvc.SentMessages)
	_, secret, err := svc.CreateStudent(context.Background(), newStudent("2107010"))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if len(emailsvc.SentMessages) != before+1 {
		t.Fatalf("sent %d welcome emails; want 1", len(emailsvc.SentMessages)-before)
	}
	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	if strings.Contains(msg.TextContent, secret) {
		t.Error("welcome email contains the initial password")
	}
}

func TestServiceCreateTeacher(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	// generated password
	acct, secret, generated, err := svc.CreateTeacher(ctx, account.NewTeacher{
		FullName:    "Dr. Karim",
		Email:       "karim@kuet.ac.bd",
		Phone:       "+8801812345678",
		Designation: account.DesignationProfessor,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	if !generated {
		t.Error("generated = false; want true when no password supplied")
	}
	if !sixDigitRegex.MatchString(secret) {
		t.Errorf("generated password = %q; want 6 digits", secret)
	}
	if acct.TeacherUID != "KARIM" {
		t.Errorf("teacher UID = %q; want %q (email local part)", acct.TeacherUID, "KARIM")
	}
	if err := credential.Verify(secret, acct.Profile.PasswordHash); err != nil {
		t.Errorf("stored hash does not match generated password: %v", err)
	}

	// supplied password and UID
	acct, secret, generated, err = svc.CreateTeacher(ctx, account.NewTeacher{
		FullName:    "Dr. Salam",
		Email:       "salam@kuet.ac.bd",
		Phone:       "+8801912345678",
		Designation: account.DesignationLecturer,
		TeacherUID:  "SLM",
		Password:    "s3cur3pass!",
	})
	if err != nil {
		t.Fatalf("CreateTeacher() with password failed: %v", err)
	}
	if generated {
		t.Error("generated = true; want false when password supplied")
	}
	if secret != "s3cur3pass!" {
		t.Errorf("secret = %q; want the supplied password back", secret)
	}
	if acct.TeacherUID != "SLM" {
		t.Errorf("teacher UID = %q; want %q", acct.TeacherUID, "SLM")
	}
}

func TestServiceQueryNewestFirst(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	createStudentAt(t, repo, "1907001", "a@stud.kuet.ac.bd", old)
	createStudentAt(t, repo, "2107001", "b@stud.kuet.ac.bd", old.Add(time.Minute))

	accts := svc.QueryStudents(ctx)
	if len(accts) != 2 {
		t.Fatalf("QueryStudents() returned %d accounts; want 2", len(accts))
	}
	if accts[0].RollNo != "2107001" {
		t.Errorf("first account roll = %q; want the newest", accts[0].RollNo)
	}
}

// downRepository simulates an unreachable store for the read paths.
type downRepository struct {
	account.Repository
}

func (downRepository) QueryStudents(ctx context.Context, ordering ...core.DBOrdering) ([]account.StudentAccount, error) {
	return nil, errors.New("connection refused")
}

func (downRepository) QueryTeachers(ctx context.Context, ordering ...core.DBOrdering) ([]account.TeacherAccount, error) {
	return nil, errors.New("connection refused")
}

type captureLogger struct {
	errored []string
}

func (*captureLogger) Enable(bool)                  {}
func (*captureLogger) Debug(string, ...interface{}) {}
func (*captureLogger) Info(string, ...interface{})  {}
func (*captureLogger) Warn(string, ...interface{})  {}
func (l *captureLogger) Error(msg string, _ ...interface{}) {
	l.errored = append(l.errored, msg)
}
func (*captureLogger) Fatal(string, ...interface{}) {}

func TestServiceQueryLenientWhenStoreDown(t *testing.T) {
	logger := &captureLogger{}
	svc := account.NewService(downRepository{}, emailsvc.NewConsoleServiceMock(core.NewConfig()), logger)
	ctx := context.Background()

	students := svc.QueryStudents(ctx)
	if students == nil {
		t.Error("QueryStudents() returned nil; want an empty slice")
	}
	if len(students) != 0 {
		t.Errorf("QueryStudents() returned %d accounts; want 0", len(students))
	}

	teachers := svc.QueryTeachers(ctx)
	if teachers == nil {
		t.Error("QueryTeachers() returned nil; want an empty slice")
	}
	if len(teachers) != 0 {
		t.Errorf("QueryTeachers() returned %d accounts; want 0", len(teachers))
	}

	if len(logger.errored) != 2 {
		t.Errorf("logged %d errors; want 2 (one per query)", len(logger.errored))
	}
}

func TestServiceDeactivateIdempotent(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, _, err := svc.CreateStudent(ctx, newStudent("2107020"))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}

	if err = svc.Deactivate(ctx, acct.UserID); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}
	profile, err := svc.GetByID(ctx, acct.UserID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if profile.IsActive {
		t.Error("account still active after Deactivate()")
	}

	// second deactivation is a no-op
	if err = svc.Deactivate(ctx, acct.UserID); err != nil {
		t.Errorf("repeated Deactivate() = %v; want nil", err)
	}

	if err = svc.Deactivate(ctx, uuid.New().String()); err != account.ErrNotFound {
		t.Errorf("Deactivate(unknown) = %v; want ErrNotFound", err)
	}
}

func TestServiceResetTeacherPassword(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, oldSecret, _, err := svc.CreateTeacher(ctx, account.NewTeacher{
		FullName:    "Dr. Karim",
		Email:       "karim@kuet.ac.bd",
		Phone:       "+8801812345678",
		Designation: account.DesignationAssociateProfessor,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}

	newSecret, err := svc.ResetTeacherPassword(ctx, acct.UserID)
	if err != nil {
		t.Fatalf("ResetTeacherPassword() failed: %v", err)
	}
	if !sixDigitRegex.MatchString(newSecret) {
		t.Errorf("reset password = %q; want 6 digits", newSecret)
	}

	profile, err := svc.GetByID(ctx, acct.UserID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if err = credential.Verify(newSecret, profile.PasswordHash); err != nil {
		t.Errorf("new password does not verify: %v", err)
	}
	if err = credential.Verify(oldSecret, profile.PasswordHash); err != credential.ErrMismatch {
		t.Errorf("old password still verifies after reset")
	}

	// students cannot be reset through this path
	stud, _, err := svc.CreateStudent(ctx, newStudent("2107030"))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if _, err = svc.ResetTeacherPassword(ctx, stud.UserID); err != account.ErrNotTeacher {
		t.Errorf("ResetTeacherPassword(student) = %v; want ErrNotTeacher", err)
	}
}

func TestServiceUpdateTeacherProfile(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, _, _, err := svc.CreateTeacher(ctx, account.NewTeacher{
		FullName:    "Dr. Karim",
		Email:       "karim@kuet.ac.bd",
		Phone:       "+8801812345678",
		Designation: account.DesignationAssistantProfessor,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}

	updated, err := svc.UpdateTeacherProfile(ctx, acct.UserID, account.UpdateTeacher{
		Designation: account.DesignationProfessor,
		OnLeave:     null.BoolFrom(true),
	})
	if err != nil {
		t.Fatalf("UpdateTeacherProfile() failed: %v", err)
	}
	if updated.Designation != account.DesignationProfessor {
		t.Errorf("designation = %q; want %q", updated.Designation, account.DesignationProfessor)
	}
	if !updated.OnLeave.Valid || !updated.OnLeave.Bool {
		t.Error("OnLeave not set")
	}
	// untouched fields survive
	if updated.FullName != "Dr. Karim" {
		t.Errorf("full name = %q; want unchanged", updated.FullName)
	}
	if updated.Phone != "+8801812345678" {
		t.Errorf("phone = %q; want unchanged", updated.Phone)
	}
}

func TestServiceAuthenticate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	acct, secret, err := svc.CreateStudent(ctx, newStudent("2107040"))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}

	profile, err := svc.Authenticate(ctx, acct.Profile.Email, secret)
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if profile.UserID != acct.UserID {
		t.Errorf("authenticated user = %q; want %q", profile.UserID, acct.UserID)
	}

	if _, err = svc.Authenticate(ctx, acct.Profile.Email, "wrong"); err != account.ErrNotFound {
		t.Errorf("wrong password err = %v; want ErrNotFound", err)
	}
	if _, err = svc.Authenticate(ctx, "nobody@kuet.ac.bd", secret); err != account.ErrNotFound {
		t.Errorf("unknown email err = %v; want ErrNotFound", err)
	}

	if err = svc.Deactivate(ctx, acct.UserID); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}
	if _, err = svc.Authenticate(ctx, acct.Profile.Email, secret); err != account.ErrNotFound {
		t.Errorf("inactive account err = %v; want ErrNotFound", err)
	}
}

func TestServiceStats(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	s1, _, err := svc.CreateStudent(ctx, newStudent("2107050"))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if _, _, err = svc.CreateStudent(ctx, newStudent("2107051")); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if _, _, _, err = svc.CreateTeacher(ctx, account.NewTeacher{
		FullName:    "Dr. Karim",
		Email:       "karim@kuet.ac.bd",
		Phone:       "+8801812345678",
		Designation: account.DesignationProfessor,
	}); err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	if err = svc.Deactivate(ctx, s1.UserID); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.ActiveStudents != 1 {
		t.Errorf("ActiveStudents = %d; want 1", stats.ActiveStudents)
	}
	if stats.ActiveTeachers != 1 {
		t.Errorf("ActiveTeachers = %d; want 1", stats.ActiveTeachers)
	}
}

func createStudentAt(t *testing.T, repo account.Repository, roll, email string, createdAt time.Time) account.StudentAccount {
	t.Helper()

	hash, err := credential.Hash(credential.StudentInitialPassword(roll))
	if err != nil {
		t.Fatalf("credential.Hash() failed: %v", err)
	}
	id := uuid.New().String()
	acct, err := repo.CreateStudent(context.Background(),
		account.Profile{
			UserID:       id,
			Role:         account.RoleStudent,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		},
		account.Student{
			UserID:   id,
			RollNo:   roll,
			FullName: "Fahim Rahman",
			Phone:    "+8801712345678",
			Term:     "2-1",
			Session:  "2021",
		},
	)
	if err != nil {
		t.Fatalf("repo.CreateStudent() failed: %v", err)
	}
	return acct
}
