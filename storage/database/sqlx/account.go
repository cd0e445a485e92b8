package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
)

const uniqueViolation = "23505"

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

// translateErr maps driver errors to the domain sentinels. Uniqueness is
// enforced by the named constraints in the schema, so a 23505 tells us
// exactly which business rule was violated.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows {
		return account.ErrNotFound
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		switch {
		case strings.Contains(pqErr.Constraint, "email"):
			return account.ErrEmailExists
		case strings.Contains(pqErr.Constraint, "roll"):
			return account.ErrRollNoExists
		}
	}
	return err
}

// orderBy builds the ORDER BY clause from the requested ordering,
// restricted to known columns. Defaults to newest first.
func orderBy(ordering []core.DBOrdering) string {
	allowed := map[string]bool{"created_at": true, "email": true}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			clauses = append(clauses, "p."+ord.String())
		}
	}
	if len(clauses) == 0 {
		return "p.created_at DESC"
	}
	return strings.Join(clauses, ", ")
}

const insertProfileQuery = `
INSERT INTO profiles (user_id, role, email, password_hash, is_active, created_at, updated_at)
VALUES (:user_id, :role, :email, :password_hash, :is_active, :created_at, :updated_at)`

func insertProfile(ctx context.Context, tx *sqlx.Tx, profile account.Profile) error {
	_, err := tx.NamedExecContext(ctx, insertProfileQuery, profile)
	return err
}

func (repo *accountRepository) CreateProfile(ctx context.Context, profile account.Profile) (account.Profile, error) {
	_, err := repo.db.NamedExecContext(ctx, insertProfileQuery, profile)
	if err != nil {
		return account.Profile{}, translateErr(errors.Wrap(err, "inserting profile"))
	}
	return profile, nil
}

func (repo *accountRepository) CreateStudent(ctx context.Context, profile account.Profile, student account.Student) (account.StudentAccount, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return account.StudentAccount{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err = insertProfile(ctx, tx, profile); err != nil {
		return account.StudentAccount{}, translateErr(errors.Wrap(err, "inserting profile"))
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO students (user_id, roll_no, full_name, phone, term, session)
		VALUES (:user_id, :roll_no, :full_name, :phone, :term, :session)`, student)
	if err != nil {
		return account.StudentAccount{}, translateErr(errors.Wrap(err, "inserting student"))
	}

	if err = tx.Commit(); err != nil {
		return account.StudentAccount{}, errors.Wrap(err, "committing transaction")
	}
	return account.StudentAccount{Student: student, Profile: profile}, nil
}

func (repo *accountRepository) CreateTeacher(ctx context.Context, profile account.Profile, teacher account.Teacher) (account.TeacherAccount, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return account.TeacherAccount{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err = insertProfile(ctx, tx, profile); err != nil {
		return account.TeacherAccount{}, translateErr(errors.Wrap(err, "inserting profile"))
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO teachers (user_id, teacher_uid, full_name, phone, designation, on_leave)
		VALUES (:user_id, :teacher_uid, :full_name, :phone, :designation, :on_leave)`, teacher)
	if err != nil {
		return account.TeacherAccount{}, translateErr(errors.Wrap(err, "inserting teacher"))
	}

	if err = tx.Commit(); err != nil {
		return account.TeacherAccount{}, errors.Wrap(err, "committing transaction")
	}
	return account.TeacherAccount{Teacher: teacher, Profile: profile}, nil
}

type studentRow struct {
	account.Student
	Role         string    `db:"role"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r studentRow) account() account.StudentAccount {
	return account.StudentAccount{
		Student: r.Student,
		Profile: account.Profile{
			UserID:       r.UserID,
			Role:         r.Role,
			Email:        r.Email,
			PasswordHash: r.PasswordHash,
			IsActive:     r.IsActive,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		},
	}
}

func (repo *accountRepository) QueryStudents(ctx context.Context, ordering ...core.DBOrdering) ([]account.StudentAccount, error) {
	query := `
		SELECT s.user_id, s.roll_no, s.full_name, s.phone, s.term, s.session,
		       p.role, p.email, p.password_hash, p.is_active, p.created_at, p.updated_at
		FROM students s
		JOIN profiles p ON p.user_id = s.user_id
		ORDER BY ` + orderBy(ordering)

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	accts := make([]account.StudentAccount, 0, len(rows))
	for _, r := range rows {
		accts = append(accts, r.account())
	}
	return accts, nil
}

type teacherRow struct {
	account.Teacher
	Role         string    `db:"role"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r teacherRow) account() account.TeacherAccount {
	return account.TeacherAccount{
		Teacher: r.Teacher,
		Profile: account.Profile{
			UserID:       r.UserID,
			Role:         r.Role,
			Email:        r.Email,
			PasswordHash: r.PasswordHash,
			IsActive:     r.IsActive,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		},
	}
}

func (repo *accountRepository) QueryTeachers(ctx context.Context, ordering ...core.DBOrdering) ([]account.TeacherAccount, error) {
	query := `
		SELECT t.user_id, t.teacher_uid, t.full_name, t.phone, t.designation, t.on_leave,
		       p.role, p.email, p.password_hash, p.is_active, p.created_at, p.updated_at
		FROM teachers t
		JOIN profiles p ON p.user_id = t.user_id
		ORDER BY ` + orderBy(ordering)

	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	accts := make([]account.TeacherAccount, 0, len(rows))
	for _, r := range rows {
		accts = append(accts, r.account())
	}
	return accts, nil
}

func (repo *accountRepository) GetProfile(ctx context.Context, filter account.GetFilter) (account.Profile, error) {
	query := `
		SELECT user_id, role, email, password_hash, is_active, created_at, updated_at
		FROM profiles `
	var arg interface{}
	if filter.ID != "" {
		query += "WHERE user_id = $1"
		arg = filter.ID
	} else {
		query += "WHERE email = $1"
		arg = filter.Email
	}

	var profile account.Profile
	if err := repo.db.GetContext(ctx, &profile, query, arg); err != nil {
		return account.Profile{}, translateErr(errors.Wrap(err, "getting profile"))
	}
	return profile, nil
}

func (repo *accountRepository) SetActive(ctx context.Context, userID string, active bool, updatedAt time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE profiles SET is_active = $1, updated_at = $2 WHERE user_id = $3",
		active, updatedAt, userID)
	if err != nil {
		return errors.Wrap(err, "updating active flag")
	}
	return checkAffected(res)
}

func (repo *accountRepository) UpdatePasswordHash(ctx context.Context, userID string, hash []byte, updatedAt time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE profiles SET password_hash = $1, updated_at = $2 WHERE user_id = $3",
		hash, updatedAt, userID)
	if err != nil {
		return errors.Wrap(err, "updating password hash")
	}
	return checkAffected(res)
}

func (repo *accountRepository) UpdateTeacher(ctx context.Context, userID string, up account.UpdateTeacher) (account.TeacherAccount, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return account.TeacherAccount{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// only save set fields
	res, err := tx.ExecContext(ctx, `
		UPDATE teachers SET
			full_name   = COALESCE(NULLIF($1, ''), full_name),
			phone       = COALESCE(NULLIF($2, ''), phone),
			designation = COALESCE(NULLIF($3, ''), designation),
			on_leave    = COALESCE($4, on_leave)
		WHERE user_id = $5`,
		up.FullName, up.Phone, up.Designation, nullBoolArg(up.OnLeave), userID)
	if err != nil {
		return account.TeacherAccount{}, errors.Wrap(err, "updating teacher")
	}
	if err = checkAffected(res); err != nil {
		return account.TeacherAccount{}, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE profiles SET updated_at = $1 WHERE user_id = $2",
		time.Now().UTC(), userID)
	if err != nil {
		return account.TeacherAccount{}, errors.Wrap(err, "touching profile")
	}

	var row teacherRow
	err = tx.GetContext(ctx, &row, `
		SELECT t.user_id, t.teacher_uid, t.full_name, t.phone, t.designation, t.on_leave,
		       p.role, p.email, p.password_hash, p.is_active, p.created_at, p.updated_at
		FROM teachers t
		JOIN profiles p ON p.user_id = t.user_id
		WHERE t.user_id = $1`, userID)
	if err != nil {
		return account.TeacherAccount{}, translateErr(errors.Wrap(err, "reloading teacher"))
	}

	if err = tx.Commit(); err != nil {
		return account.TeacherAccount{}, errors.Wrap(err, "committing transaction")
	}
	return row.account(), nil
}

func (repo *accountRepository) CountActive(ctx context.Context) (account.Stats, error) {
	var stats account.Stats
	err := repo.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM students s JOIN profiles p ON p.user_id = s.user_id WHERE p.is_active) AS active_students,
			(SELECT COUNT(*) FROM teachers t JOIN profiles p ON p.user_id = t.user_id WHERE p.is_active) AS active_teachers`)
	if err != nil {
		return account.Stats{}, errors.Wrap(err, "counting active accounts")
	}
	return stats, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking affected rows")
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func nullBoolArg(b null.Bool) interface{} {
	if b.Valid {
		return b.Bool
	}
	return nil
}
