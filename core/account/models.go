package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
)

// Roles
const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
)

// Designations
const (
	DesignationProfessor          = "PROFESSOR"
	DesignationAssociateProfessor = "ASSOCIATE_PROFESSOR"
	DesignationAssistantProfessor = "ASSISTANT_PROFESSOR"
	DesignationLecturer           = "LECTURER"
)

var Designations = []string{
	DesignationProfessor,
	DesignationAssociateProfessor,
	DesignationAssistantProfessor,
	DesignationLecturer,
}

// Profile is the authentication-only record: one row per account,
// regardless of role. The password hash never leaves the backend.
type Profile struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Role         string    `json:"role" db:"role"`
	Email        string    `json:"email" db:"email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (p Profile) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Profile) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Profile) IsStudent() bool { return p.Role == RoleStudent }

// Teacher holds the teacher-specific attributes, joined 1:1 to a Profile.
type Teacher struct {
	UserID      string    `json:"user_id" db:"user_id"`
	TeacherUID  string    `json:"teacher_uid" db:"teacher_uid"`
	FullName    string    `json:"full_name" db:"full_name"`
	Phone       string    `json:"phone" db:"phone"`
	Designation string    `json:"designation" db:"designation"`
	OnLeave     null.Bool `json:"on_leave" db:"on_leave"`
}

// Student holds the student-specific attributes, joined 1:1 to a Profile.
type Student struct {
	UserID   string `json:"user_id" db:"user_id"`
	RollNo   string `json:"roll_no" db:"roll_no"`
	FullName string `json:"full_name" db:"full_name"`
	Phone    string `json:"phone" db:"phone"`
	Term     string `json:"term" db:"term"`       // academic year-term, e.g. "2-1"
	Session  string `json:"session" db:"session"` // admission year, e.g. "2021"
}

// TeacherAccount is the joined teacher+auth view returned by the API.
type TeacherAccount struct {
	Teacher
	Profile Profile `json:"profile"`
}

// StudentAccount is the joined student+auth view returned by the API.
type StudentAccount struct {
	Student
	Profile Profile `json:"profile"`
}

// NewStudent contains information needed to provision a student account.
type NewStudent struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,emailaddr"`
	Phone    string `json:"phone" validate:"required"`
	RollNo   string `json:"roll_no" validate:"required,numeric"`
	Term     string `json:"term" validate:"required,term"`
	Session  string `json:"session" validate:"required,numeric"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.RollNo = core.CleanString(ns.RollNo)
	ns.Term = core.CleanString(ns.Term)
	ns.Session = core.CleanString(ns.Session)
	return validate.Struct(ns)
}

// NewTeacher contains information needed to provision a teacher account.
// Password is optional; when empty a 6-digit one is generated and returned
// once to the caller.
type NewTeacher struct {
	FullName    string `json:"full_name" validate:"required"`
	Email       string `json:"email" validate:"required,emailaddr"`
	Phone       string `json:"phone" validate:"required"`
	Designation string `json:"designation" validate:"required,designation"`
	TeacherUID  string `json:"teacher_uid" validate:"omitempty"`
	Password    string `json:"password" validate:"omitempty"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.FullName = core.CleanString(nt.FullName)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
	nt.Designation = core.CleanString(nt.Designation)
	nt.TeacherUID = core.CleanString(nt.TeacherUID)
	return validate.Struct(nt)
}

// UpdateTeacher defines what may be changed on an existing teacher profile.
// The auth record (email, role) is deliberately not updatable here.
type UpdateTeacher struct {
	FullName    string    `json:"full_name" validate:"omitempty"`
	Phone       string    `json:"phone" validate:"omitempty"`
	Designation string    `json:"designation" validate:"omitempty,designation"`
	OnLeave     null.Bool `json:"on_leave"`
}

func (u *UpdateTeacher) IsEmpty() bool {
	return u.FullName == "" && u.Phone == "" && u.Designation == "" && !u.OnLeave.Valid
}

func (u *UpdateTeacher) Validate(validate *validator.Validate) error {
	u.FullName = core.CleanString(u.FullName)
	u.Phone = core.CleanString(u.Phone)
	u.Designation = core.CleanString(u.Designation)
	return validate.Struct(u)
}

// GetFilter selects a single Profile by ID or email.
type GetFilter struct {
	ID    string
	Email string
}

// Stats is the dashboard overview of active accounts.
type Stats struct {
	ActiveStudents int `json:"active_students" db:"active_students"`
	ActiveTeachers int `json:"active_teachers" db:"active_teachers"`
}
