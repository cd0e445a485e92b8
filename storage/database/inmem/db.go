package inmemdb

import (
	"sync"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
)

type (
	// DB is a process-local store backing tests and local development.
	DB struct {
		mutex    sync.RWMutex
		profiles map[string]*account.Profile
		teachers map[string]*account.Teacher
		students map[string]*account.Student
	}
)

func Open() (*DB, error) {
	db := &DB{
		profiles: make(map[string]*account.Profile),
		teachers: make(map[string]*account.Teacher),
		students: make(map[string]*account.Student),
	}
	return db, nil
}
