// Package account provisions and manages portal accounts: the shared
// auth profile plus the role-specific teacher or student record.
package account

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/credential"
)

var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrEmailExists is returned when the email is already registered.
	ErrEmailExists = errors.New("email already in use")
	// ErrRollNoExists is returned when the roll number is already registered.
	ErrRollNoExists = errors.New("roll number already in use")
	// ErrNotTeacher is returned by teacher-only operations on other roles.
	ErrNotTeacher = errors.New("account is not a teacher")
)

type (
	// Repository persists accounts. Creates are atomic: the profile and the
	// role record land together or not at all, and uniqueness violations
	// surface as ErrEmailExists / ErrRollNoExists.
	Repository interface {
		CreateProfile(ctx context.Context, profile Profile) (Profile, error)
		CreateStudent(ctx context.Context, profile Profile, student Student) (StudentAccount, error)
		CreateTeacher(ctx context.Context, profile Profile, teacher Teacher) (TeacherAccount, error)
		QueryStudents(ctx context.Context, ordering ...core.DBOrdering) ([]StudentAccount, error)
		QueryTeachers(ctx context.Context, ordering ...core.DBOrdering) ([]TeacherAccount, error)
		GetProfile(ctx context.Context, filter GetFilter) (Profile, error)
		SetActive(ctx context.Context, userID string, active bool, updatedAt time.Time) error
		UpdatePasswordHash(ctx context.Context, userID string, hash []byte, updatedAt time.Time) error
		UpdateTeacher(ctx context.Context, userID string, up UpdateTeacher) (TeacherAccount, error)
		CountActive(ctx context.Context) (Stats, error)
	}

	// Service is the account provisioning use-case layer. Operations that
	// mint a plaintext secret return it exactly once; it is never stored
	// or logged.
	Service interface {
		CreateStudent(ctx context.Context, ns NewStudent) (StudentAccount, string, error)
		CreateTeacher(ctx context.Context, nt NewTeacher) (TeacherAccount, string, bool, error)
		QueryStudents(ctx context.Context, ordering ...core.DBOrdering) []StudentAccount
		QueryTeachers(ctx context.Context, ordering ...core.DBOrdering) []TeacherAccount
		GetByID(ctx context.Context, userID string) (Profile, error)
		GetByEmail(ctx context.Context, email string) (Profile, error)
		Authenticate(ctx context.Context, email, password string) (Profile, error)
		Deactivate(ctx context.Context, userID string) error
		ResetTeacherPassword(ctx context.Context, userID string) (string, error)
		UpdateTeacherProfile(ctx context.Context, userID string, up UpdateTeacher) (TeacherAccount, error)
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{repo: repo, mailSvc: mailSvc, logger: logger}
}

// CreateStudent provisions a student account. The initial password is the
// roll number; it is returned to the caller for one-time display.
func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (StudentAccount, string, error) {
	secret := credential.StudentInitialPassword(ns.RollNo)
	hash, err := credential.Hash(secret)
	if err != nil {
		return StudentAccount{}, "", err
	}

	now := time.Now().UTC()
	profile := Profile{
		UserID:       uuid.New().String(),
		Role:         RoleStudent,
		Email:        ns.Email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	student := Student{
		UserID:   profile.UserID,
		RollNo:   ns.RollNo,
		FullName: ns.FullName,
		Phone:    ns.Phone,
		Term:     ns.Term,
		Session:  ns.Session,
	}

	acct, err := svc.repo.CreateStudent(ctx, profile, student)
	if err != nil {
		return StudentAccount{}, "", err
	}

	svc.sendWelcomeEmail(acct.Profile.Email, acct.FullName)
	return acct, secret, nil
}

// CreateTeacher provisions a teacher account. When no password is supplied
// a 6-digit one is generated; the returned bool reports which case applied
// so callers only echo back secrets they did not already know.
func (svc *service) CreateTeacher(ctx context.Context, nt NewTeacher) (TeacherAccount, string, bool, error) {
	secret := nt.Password
	generated := false
	if secret == "" {
		var err error
		if secret, err = credential.GenerateTeacherPassword(); err != nil {
			return TeacherAccount{}, "", false, err
		}
		generated = true
	}
	hash, err := credential.Hash(secret)
	if err != nil {
		return TeacherAccount{}, "", false, err
	}

	teacherUID := nt.TeacherUID
	if teacherUID == "" {
		teacherUID = defaultTeacherUID(nt.Email)
	}

	now := time.Now().UTC()
	profile := Profile{
		UserID:       uuid.New().String(),
		Role:         RoleTeacher,
		Email:        nt.Email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	teacher := Teacher{
		UserID:      profile.UserID,
		TeacherUID:  teacherUID,
		FullName:    nt.FullName,
		Phone:       nt.Phone,
		Designation: nt.Designation,
	}

	acct, err := svc.repo.CreateTeacher(ctx, profile, teacher)
	if err != nil {
		return TeacherAccount{}, "", false, err
	}

	svc.sendWelcomeEmail(acct.Profile.Email, acct.FullName)
	return acct, secret, generated, nil
}

// QueryStudents returns student accounts, newest first unless another
// ordering is requested. Listing is lenient: a storage error is logged
// and an empty slice returned so the dashboard still renders.
func (svc *service) QueryStudents(ctx context.Context, ordering ...core.DBOrdering) []StudentAccount {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	accts, err := svc.repo.QueryStudents(ctx, ordering...)
	if err != nil {
		svc.logger.Error("querying students", err)
		return []StudentAccount{}
	}
	return accts
}

// QueryTeachers returns teacher accounts with the same ordering and
// leniency as QueryStudents.
func (svc *service) QueryTeachers(ctx context.Context, ordering ...core.DBOrdering) []TeacherAccount {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	accts, err := svc.repo.QueryTeachers(ctx, ordering...)
	if err != nil {
		svc.logger.Error("querying teachers", err)
		return []TeacherAccount{}
	}
	return accts
}

func (svc *service) GetByID(ctx context.Context, userID string) (Profile, error) {
	return svc.repo.GetProfile(ctx, GetFilter{ID: userID})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return svc.repo.GetProfile(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// Authenticate checks the credentials of an active account. All failure
// modes (unknown email, inactive, wrong password) collapse to ErrNotFound
// so login errors do not reveal which accounts exist.
func (svc *service) Authenticate(ctx context.Context, email, password string) (Profile, error) {
	profile, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Profile{}, ErrNotFound
	}
	if !profile.IsActive {
		return Profile{}, ErrNotFound
	}
	if err := credential.Verify(password, profile.PasswordHash); err != nil {
		if errors.Cause(err) != credential.ErrMismatch {
			svc.logger.Error("verifying stored credential", err)
		}
		return Profile{}, ErrNotFound
	}
	return profile, nil
}

// Deactivate soft-deletes an account. Deactivating an already inactive
// account is a no-op, not an error.
func (svc *service) Deactivate(ctx context.Context, userID string) error {
	profile, err := svc.repo.GetProfile(ctx, GetFilter{ID: userID})
	if err != nil {
		return err
	}
	if !profile.IsActive {
		return nil
	}
	return svc.repo.SetActive(ctx, userID, false, time.Now().UTC())
}

// ResetTeacherPassword replaces a teacher's credential with a fresh
// generated one and returns the plaintext exactly once.
func (svc *service) ResetTeacherPassword(ctx context.Context, userID string) (string, error) {
	profile, err := svc.repo.GetProfile(ctx, GetFilter{ID: userID})
	if err != nil {
		return "", err
	}
	if !profile.IsTeacher() {
		return "", ErrNotTeacher
	}

	secret, err := credential.GenerateTeacherPassword()
	if err != nil {
		return "", err
	}
	hash, err := credential.Hash(secret)
	if err != nil {
		return "", err
	}
	if err = svc.repo.UpdatePasswordHash(ctx, userID, hash, time.Now().UTC()); err != nil {
		return "", err
	}
	return secret, nil
}

// UpdateTeacherProfile applies a partial update to a teacher record.
// An empty update returns the current state unchanged.
func (svc *service) UpdateTeacherProfile(ctx context.Context, userID string, up UpdateTeacher) (TeacherAccount, error) {
	profile, err := svc.repo.GetProfile(ctx, GetFilter{ID: userID})
	if err != nil {
		return TeacherAccount{}, err
	}
	if !profile.IsTeacher() {
		return TeacherAccount{}, ErrNotTeacher
	}
	return svc.repo.UpdateTeacher(ctx, userID, up)
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	return svc.repo.CountActive(ctx)
}

// sendWelcomeEmail notifies the new account owner. The message never
// contains the credential; delivery failures are the email service's
// problem, not the provisioning transaction's.
func (svc *service) sendWelcomeEmail(email, fullName string) {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: fullName, Address: email}},
		Subject: "Welcome to the KUET CSE Portal",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nAn account has been created for you on the KUET CSE portal. "+
				"Your department admin will hand you your initial credentials.\n", fullName),
	}
	svc.mailSvc.SendMessages(msg)
}

// defaultTeacherUID derives a teacher UID from the email local part,
// upper-cased: jdoe@kuet.ac.bd becomes JDOE.
func defaultTeacherUID(email string) string {
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}
	return strings.ToUpper(local)
}
