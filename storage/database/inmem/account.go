package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

// checkUniqueness mirrors the relational constraints: one profile per
// email, one student per roll number.
func (repo *accountRepository) checkUniqueness(email, rollNo string) error {
	for _, p := range repo.db.profiles {
		if p.Email == email {
			return account.ErrEmailExists
		}
	}
	if rollNo != "" {
		for _, s := range repo.db.students {
			if s.RollNo == rollNo {
				return account.ErrRollNoExists
			}
		}
	}
	return nil
}

func (repo *accountRepository) CreateProfile(ctx context.Context, profile account.Profile) (account.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUniqueness(profile.Email, ""); err != nil {
		return account.Profile{}, err
	}
	repo.db.profiles[profile.UserID] = &profile
	return profile, nil
}

func (repo *accountRepository) CreateStudent(ctx context.Context, profile account.Profile, student account.Student) (account.StudentAccount, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUniqueness(profile.Email, student.RollNo); err != nil {
		return account.StudentAccount{}, err
	}
	repo.db.profiles[profile.UserID] = &profile
	repo.db.students[student.UserID] = &student
	return account.StudentAccount{Student: student, Profile: profile}, nil
}

func (repo *accountRepository) CreateTeacher(ctx context.Context, profile account.Profile, teacher account.Teacher) (account.TeacherAccount, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUniqueness(profile.Email, ""); err != nil {
		return account.TeacherAccount{}, err
	}
	repo.db.profiles[profile.UserID] = &profile
	repo.db.teachers[teacher.UserID] = &teacher
	return account.TeacherAccount{Teacher: teacher, Profile: profile}, nil
}

func (repo *accountRepository) QueryStudents(ctx context.Context, ordering ...core.DBOrdering) ([]account.StudentAccount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	accts := make([]account.StudentAccount, 0, len(repo.db.students))
	for id, s := range repo.db.students {
		if p, ok := repo.db.profiles[id]; ok {
			accts = append(accts, account.StudentAccount{Student: *s, Profile: *p})
		}
	}
	if createdAtAscending(ordering) {
		sort.SliceStable(accts, func(i, j int) bool { return accts[i].Profile.CreatedAt.Before(accts[j].Profile.CreatedAt) })
	} else {
		sort.SliceStable(accts, func(i, j int) bool { return accts[i].Profile.CreatedAt.After(accts[j].Profile.CreatedAt) })
	}
	return accts, nil
}

func (repo *accountRepository) QueryTeachers(ctx context.Context, ordering ...core.DBOrdering) ([]account.TeacherAccount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	accts := make([]account.TeacherAccount, 0, len(repo.db.teachers))
	for id, t := range repo.db.teachers {
		if p, ok := repo.db.profiles[id]; ok {
			accts = append(accts, account.TeacherAccount{Teacher: *t, Profile: *p})
		}
	}
	if createdAtAscending(ordering) {
		sort.SliceStable(accts, func(i, j int) bool { return accts[i].Profile.CreatedAt.Before(accts[j].Profile.CreatedAt) })
	} else {
		sort.SliceStable(accts, func(i, j int) bool { return accts[i].Profile.CreatedAt.After(accts[j].Profile.CreatedAt) })
	}
	return accts, nil
}

func (repo *accountRepository) GetProfile(ctx context.Context, filter account.GetFilter) (account.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.profiles[filter.ID]; ok {
			return *p, nil
		}
		return account.Profile{}, account.ErrNotFound
	}
	for _, p := range repo.db.profiles {
		if p.Email == filter.Email {
			return *p, nil
		}
	}
	return account.Profile{}, account.ErrNotFound
}

func (repo *accountRepository) SetActive(ctx context.Context, userID string, active bool, updatedAt time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.profiles[userID]
	if !ok {
		return account.ErrNotFound
	}
	p.IsActive = active
	p.UpdatedAt = updatedAt
	return nil
}

func (repo *accountRepository) UpdatePasswordHash(ctx context.Context, userID string, hash []byte, updatedAt time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.profiles[userID]
	if !ok {
		return account.ErrNotFound
	}
	p.PasswordHash = hash
	p.UpdatedAt = updatedAt
	return nil
}

func (repo *accountRepository) UpdateTeacher(ctx context.Context, userID string, up account.UpdateTeacher) (account.TeacherAccount, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, ok := repo.db.teachers[userID]
	if !ok {
		return account.TeacherAccount{}, account.ErrNotFound
	}
	p, ok := repo.db.profiles[userID]
	if !ok {
		return account.TeacherAccount{}, account.ErrNotFound
	}

	// only save set fields
	if up.FullName != "" {
		t.FullName = up.FullName
	}
	if up.Phone != "" {
		t.Phone = up.Phone
	}
	if up.Designation != "" {
		t.Designation = up.Designation
	}
	if up.OnLeave.Valid {
		t.OnLeave = up.OnLeave
	}
	p.UpdatedAt = time.Now().UTC()
	return account.TeacherAccount{Teacher: *t, Profile: *p}, nil
}

func (repo *accountRepository) CountActive(ctx context.Context) (account.Stats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var stats account.Stats
	for id, p := range repo.db.profiles {
		if !p.IsActive {
			continue
		}
		if _, ok := repo.db.students[id]; ok {
			stats.ActiveStudents++
		} else if _, ok := repo.db.teachers[id]; ok {
			stats.ActiveTeachers++
		}
	}
	return stats, nil
}

// createdAtAscending reports whether an ascending created_at ordering was
// requested. The default is newest first.
func createdAtAscending(ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		if ord.Field == "created_at" {
			return ord.Ascending
		}
	}
	return false
}
