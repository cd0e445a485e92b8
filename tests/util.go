package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/credential"
)

// CreateProfile persists a bare auth profile with the given role.
func CreateProfile(t *testing.T, repo account.Repository, email, role, pwd string, isActive bool, createdAt ...time.Time) account.Profile {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	hash, err := credential.Hash(pwd)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	profile, err := repo.CreateProfile(context.Background(), account.Profile{
		UserID:       uuid.New().String(),
		Role:         role,
		Email:        email,
		PasswordHash: hash,
		IsActive:     isActive,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return profile
}

// CreateStudentAccount persists a student with their profile. The initial
// password is the roll number.
func CreateStudentAccount(t *testing.T, repo account.Repository, roll, email string, createdAt ...time.Time) account.StudentAccount {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	hash, err := credential.Hash(credential.StudentInitialPassword(roll))
	if err != nil {
		t.Fatalf("CreateStudentAccount() failed: %v", err)
	}
	id := uuid.New().String()
	acct, err := repo.CreateStudent(context.Background(),
		account.Profile{
			UserID:       id,
			Role:         account.RoleStudent,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    tstamp,
			UpdatedAt:    tstamp,
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
		t.Fatalf("CreateStudentAccount() failed: %v", err)
	}
	return acct
}

// CreateTeacherAccount persists a teacher with their profile.
func CreateTeacherAccount(t *testing.T, repo account.Repository, email, pwd string, createdAt ...time.Time) account.TeacherAccount {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	hash, err := credential.Hash(pwd)
	if err != nil {
		t.Fatalf("CreateTeacherAccount() failed: %v", err)
	}
	id := uuid.New().String()
	acct, err := repo.CreateTeacher(context.Background(),
		account.Profile{
			UserID:       id,
			Role:         account.RoleTeacher,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    tstamp,
			UpdatedAt:    tstamp,
		},
		account.Teacher{
			UserID:      id,
			TeacherUID:  "KRM",
			FullName:    "Dr. Karim",
			Phone:       "+8801812345678",
			Designation: account.DesignationProfessor,
		},
	)
	if err != nil {
		t.Fatalf("CreateTeacherAccount() failed: %v", err)
	}
	return acct
}
